package audit

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/internal/store"
	"github.com/wonny/goldcurve/pkg/logger"
)

// Auditor checks the contract store for gaps and junk files
// ⭐ SSOT: 파일 완결성 기준은 curveconfig.Audit 에서만
type Auditor struct {
	store  *store.Store
	domain *curveconfig.Config
	logger *logger.Logger
}

// NewAuditor creates a new auditor
func NewAuditor(st *store.Store, domain *curveconfig.Config, log *logger.Logger) *Auditor {
	return &Auditor{
		store:  st,
		domain: domain,
		logger: log.WithField("module", "audit"),
	}
}

// SmallFile is a contract file below a size threshold
type SmallFile struct {
	Expiry time.Time `json:"expiry"`
	Name   string    `json:"name"`
	Size   int64     `json:"size"`
}

// Report is the result of Audit
type Report struct {
	Checked    int         `json:"checked"`
	Missing    []time.Time `json:"missing"`    // 파일 없음
	Incomplete []SmallFile `json:"incomplete"` // min_file_bytes 미만, 삭제됨
}

// NeedsFetch returns missing and incomplete expiries together, in audit order
func (r *Report) NeedsFetch() []time.Time {
	out := make([]time.Time, 0, len(r.Missing)+len(r.Incomplete))
	out = append(out, r.Missing...)
	for _, f := range r.Incomplete {
		out = append(out, f.Expiry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out
}

// Audit checks every expected expiry. Incomplete files are removed so the
// next fetch writes them clean.
func (a *Auditor) Audit(expected []time.Time) (*Report, error) {
	report := &Report{Checked: len(expected)}

	for _, e := range expected {
		tag := contracts.FormatExpiry(e)

		size, err := a.store.Size(e)
		if err != nil {
			a.logger.WithExpiry(tag).Warn("MISSING")
			report.Missing = append(report.Missing, e)
			continue
		}

		if size < a.domain.Audit.MinFileBytes {
			a.logger.WithFields(map[string]interface{}{
				"expiry": tag,
				"size":   size,
			}).Warn("INCOMPLETE")
			if err := a.store.Remove(e); err != nil {
				return report, fmt.Errorf("remove incomplete %s: %w", tag, err)
			}
			report.Incomplete = append(report.Incomplete, SmallFile{Expiry: e, Name: store.FileName(e), Size: size})
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"checked":    report.Checked,
		"missing":    len(report.Missing),
		"incomplete": len(report.Incomplete),
	}).Info("Audit complete")

	return report, nil
}

// CoverageGrid marks which (year, month) pairs have at least one contract file
type CoverageGrid struct {
	FromYear int
	ToYear   int
	present  map[int]*[12]bool
}

// Has reports whether year/month has a file
func (g *CoverageGrid) Has(year int, month time.Month) bool {
	row, ok := g.present[year]
	return ok && row[month-1]
}

// Years returns the grid rows ascending
func (g *CoverageGrid) Years() []int {
	years := make([]int, 0, g.ToYear-g.FromYear+1)
	for y := g.FromYear; y <= g.ToYear; y++ {
		years = append(years, y)
	}
	return years
}

// Count returns the number of covered cells
func (g *CoverageGrid) Count() int {
	n := 0
	for y := g.FromYear; y <= g.ToYear; y++ {
		for m := time.January; m <= time.December; m++ {
			if g.Has(y, m) {
				n++
			}
		}
	}
	return n
}

// Coverage builds the year x month grid from file names
func (a *Auditor) Coverage(fromYear, toYear int) (*CoverageGrid, error) {
	if fromYear > toYear {
		return nil, fmt.Errorf("invalid year range %d-%d", fromYear, toYear)
	}

	entries, err := a.store.List()
	if err != nil {
		return nil, err
	}

	grid := &CoverageGrid{FromYear: fromYear, ToYear: toYear, present: make(map[int]*[12]bool)}
	for _, e := range entries {
		if !e.HasExpiry {
			continue
		}
		y := e.Expiry.Year()
		if y < fromYear || y > toYear {
			continue
		}
		if grid.present[y] == nil {
			grid.present[y] = &[12]bool{}
		}
		grid.present[y][e.Expiry.Month()-1] = true
	}
	return grid, nil
}

// MainMonth is the verification result for one main-contract month
type MainMonth struct {
	Year   int         `json:"year"`
	Month  string      `json:"month"` // FEB
	Valid  []SmallFile `json:"valid"` // main_min_bytes 초과
	Small  []SmallFile `json:"small"` // 존재하지만 작음
	Exists bool        `json:"exists"`
}

// OK reports whether the month has at least one valid file
func (m MainMonth) OK() bool {
	return len(m.Valid) > 0
}

// VerifyMain checks the main contract months for each year
func (a *Auditor) VerifyMain(years []int) ([]MainMonth, error) {
	entries, err := a.store.List()
	if err != nil {
		return nil, err
	}

	months := make([]time.Month, 0, len(a.domain.Audit.MainMonths))
	for _, m := range a.domain.Audit.MainMonths {
		t, err := time.Parse("Jan", strings.ToUpper(m))
		if err != nil {
			return nil, fmt.Errorf("bad main month %q: %w", m, err)
		}
		months = append(months, t.Month())
	}

	var out []MainMonth
	for _, y := range years {
		for _, m := range months {
			mm := MainMonth{Year: y, Month: strings.ToUpper(m.String()[:3])}
			for _, e := range entries {
				if !e.HasExpiry || e.Expiry.Year() != y || e.Expiry.Month() != m {
					continue
				}
				mm.Exists = true
				f := SmallFile{Expiry: e.Expiry, Name: e.Name, Size: e.Size}
				if e.Size > a.domain.Audit.MainMinBytes {
					mm.Valid = append(mm.Valid, f)
				} else {
					mm.Small = append(mm.Small, f)
				}
			}
			out = append(out, mm)
		}
	}
	return out, nil
}

// Cleanup deletes every contract file below min_file_bytes
func (a *Auditor) Cleanup() ([]SmallFile, error) {
	entries, err := a.store.List()
	if err != nil {
		return nil, err
	}

	var deleted []SmallFile
	var firstErr error
	for _, e := range entries {
		if e.Size >= a.domain.Audit.MinFileBytes {
			continue
		}
		if err := a.store.RemovePath(e.Path); err != nil {
			a.logger.WithError(err).WithField("file", e.Name).Error("Error deleting file")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		a.logger.WithFields(map[string]interface{}{
			"file": e.Name,
			"size": e.Size,
		}).Info("Deleted small file")
		deleted = append(deleted, SmallFile{Expiry: e.Expiry, Name: e.Name, Size: e.Size})
	}

	a.logger.WithField("deleted", len(deleted)).Info("Cleanup complete")
	return deleted, firstErr
}
