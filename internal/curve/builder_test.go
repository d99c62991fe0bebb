package curve

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/pkg/logger"
)

func rec(trade, expiry time.Time, close float64) contracts.ContractRecord {
	return contracts.ContractRecord{TradeDate: trade, ExpiryDate: expiry, Close: close}
}

func newBuilder(t *testing.T, policy string) *Builder {
	t.Helper()
	b, err := NewBuilder(policy, logger.Nop())
	require.NoError(t, err)
	return b
}

func TestBuild_GroupsAndSorts(t *testing.T) {
	feb, apr, jun := d(2024, time.February, 5), d(2024, time.April, 5), d(2024, time.June, 5)
	day1, day2 := d(2024, time.January, 2), d(2024, time.January, 3)

	sets := []contracts.RecordSet{
		{Source: "05APR2024.csv", Records: []contracts.ContractRecord{rec(day2, apr, 64000), rec(day1, apr, 63900)}},
		{Source: "05FEB2024.csv", Records: []contracts.ContractRecord{rec(day1, feb, 63000), rec(day2, feb, 63100)}},
		{Source: "05JUN2024.csv", Records: []contracts.ContractRecord{rec(day1, jun, 64800)}},
	}

	curves, err := newBuilder(t, curveconfig.DuplicateKeep).Build(sets)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{day1, day2}, curves.Dates())
	assert.Equal(t, 2, curves.Len())

	c1, ok := curves.Get(day1)
	require.True(t, ok)
	assert.Equal(t, day1, c1.Date)
	require.Len(t, c1.Points, 3)
	assert.Equal(t, feb, c1.Points[0].Expiry)
	assert.Equal(t, apr, c1.Points[1].Expiry)
	assert.Equal(t, jun, c1.Points[2].Expiry)

	c2, _ := curves.Get(day2)
	assert.Len(t, c2.Points, 2)

	_, ok = curves.Get(d(2024, time.January, 4))
	assert.False(t, ok)
}

func TestBuild_SkippedSetsIgnored(t *testing.T) {
	day := d(2024, time.January, 2)
	sets := []contracts.RecordSet{
		{Source: "bad.csv", Skipped: true, Records: []contracts.ContractRecord{rec(day, day, 1)}},
		{Source: "ok.csv", Records: []contracts.ContractRecord{rec(day, d(2024, time.February, 5), 2)}},
	}

	curves, err := newBuilder(t, "").Build(sets)
	require.NoError(t, err)

	c, _ := curves.Get(day)
	require.Len(t, c.Points, 1)
	assert.Equal(t, 2.0, c.Points[0].Close)
}

func TestBuild_EmptyInput(t *testing.T) {
	tests := []struct {
		name string
		sets []contracts.RecordSet
	}{
		{"no sets", nil},
		{"all skipped", []contracts.RecordSet{{Source: "a.csv", Skipped: true}}},
		{"no records", []contracts.RecordSet{{Source: "a.csv", Malformed: 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newBuilder(t, "").Build(tt.sets)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contracts.ErrEmptyInput))
		})
	}
}

func TestBuild_DuplicateExpiryPolicies(t *testing.T) {
	day := d(2024, time.January, 2)
	feb, apr := d(2024, time.February, 5), d(2024, time.April, 5)

	sets := []contracts.RecordSet{
		{Source: "a.csv", Records: []contracts.ContractRecord{rec(day, apr, 64000), rec(day, feb, 63000)}},
		{Source: "b.csv", Records: []contracts.ContractRecord{rec(day, feb, 63500)}},
	}

	tests := []struct {
		policy string
		want   []float64 // closes in curve order
	}{
		{curveconfig.DuplicateKeep, []float64{63000, 63500, 64000}},
		{curveconfig.DuplicateFirst, []float64{63000, 64000}},
		{curveconfig.DuplicateLast, []float64{63500, 64000}},
	}

	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			curves, err := newBuilder(t, tt.policy).Build(sets)
			require.NoError(t, err)
			assert.Equal(t, 1, curves.Duplicates)

			c, _ := curves.Get(day)
			got := make([]float64, 0, len(c.Points))
			for _, p := range c.Points {
				got = append(got, p.Close)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewBuilder_UnknownPolicy(t *testing.T) {
	_, err := NewBuilder("merge", logger.Nop())
	assert.Error(t, err)
}

func TestCurves_DatesReturnsCopy(t *testing.T) {
	day := d(2024, time.January, 2)
	curves, err := newBuilder(t, "").Build([]contracts.RecordSet{
		{Records: []contracts.ContractRecord{rec(day, d(2024, time.February, 5), 1)}},
	})
	require.NoError(t, err)

	dates := curves.Dates()
	dates[0] = time.Time{}
	assert.Equal(t, day, curves.Dates()[0])
}
