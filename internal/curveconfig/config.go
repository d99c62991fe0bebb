package curveconfig

// Config는 프리미엄 파이프라인의 도메인 설정
// ⭐ SSOT: 롤 규칙, 수집 윈도우, 감사 임계값, 만기 목록
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Instrument Instrument `yaml:"instrument" json:"instrument"`
	Roll       Roll       `yaml:"roll" json:"roll"`
	Ingest     Ingest     `yaml:"ingest" json:"ingest"`
	Audit      Audit      `yaml:"audit" json:"audit"`
	Expiries   []string   `yaml:"expiries" json:"expiries"` // DDMMMYYYY
}

// Meta 메타 정보
type Meta struct {
	ConfigID string `yaml:"config_id" json:"config_id"`
	Version  string `yaml:"version" json:"version"`
}

// Instrument identifies the contract family on MCX
type Instrument struct {
	Symbol         string `yaml:"symbol" json:"symbol"`                   // GOLD
	InstrumentName string `yaml:"instrument_name" json:"instrument_name"` // FUTCOM
}

// Roll: near/far 선택 및 프리미엄 계산
type Roll struct {
	ThresholdDays   int    `yaml:"threshold_days" json:"threshold_days"`
	DaysPerYear     int    `yaml:"days_per_year" json:"days_per_year"`
	Rounding        string `yaml:"rounding" json:"rounding"`                 // half_even | half_away_from_zero
	DuplicateExpiry string `yaml:"duplicate_expiry" json:"duplicate_expiry"` // keep | first | last
}

// Rounding modes
const (
	RoundingHalfEven         = "half_even"
	RoundingHalfAwayFromZero = "half_away_from_zero"
)

// Duplicate expiry policies
const (
	DuplicateKeep  = "keep"
	DuplicateFirst = "first"
	DuplicateLast  = "last"
)

// Ingest: MCX 수집 파라미터
type Ingest struct {
	LookbackDays        int `yaml:"lookback_days" json:"lookback_days"`
	RecentWindowDays    int `yaml:"recent_window_days" json:"recent_window_days"`
	SessionRefreshEvery int `yaml:"session_refresh_every" json:"session_refresh_every"`
	RequestSpacingMS    int `yaml:"request_spacing_ms" json:"request_spacing_ms"`
	ErrorBackoffMS      int `yaml:"error_backoff_ms" json:"error_backoff_ms"`
}

// Audit: 파일 완결성 기준
type Audit struct {
	MinFileBytes     int64    `yaml:"min_file_bytes" json:"min_file_bytes"`
	MainMinBytes     int64    `yaml:"main_min_bytes" json:"main_min_bytes"`
	MainMonths       []string `yaml:"main_months" json:"main_months"`
	CoverageFromYear int      `yaml:"coverage_from_year" json:"coverage_from_year"`
	CoverageToYear   int      `yaml:"coverage_to_year" json:"coverage_to_year"`
}

// ApplyOverrides replaces YAML values with positive env overrides
func (c *Config) ApplyOverrides(thresholdDays, lookbackDays int) {
	if thresholdDays > 0 {
		c.Roll.ThresholdDays = thresholdDays
	}
	if lookbackDays > 0 {
		c.Ingest.LookbackDays = lookbackDays
	}
}
