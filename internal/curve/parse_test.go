package curve

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestParseTradeDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-01-02", d(2024, time.January, 2), false},
		{" 2024-01-02 ", d(2024, time.January, 2), false},
		{"2024-01-02 00:00:00", d(2024, time.January, 2), false},
		{"2024-01-02 00:00:00+05:30", d(2024, time.January, 2), false},
		{"2024-01-02T18:30:00Z", d(2024, time.January, 2), false},
		{"2024-01-02T09:15:00", d(2024, time.January, 2), false},
		{"02/01/2024", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTradeDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseExpiryDate(t *testing.T) {
	for _, in := range []string{"05FEB2024", "05Feb2024", "5FEB2024", "5feb2024", "2024-02-05"} {
		got, err := ParseExpiryDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, d(2024, time.February, 5), got, in)
	}

	_, err := ParseExpiryDate("FEB2024")
	assert.Error(t, err)
}

func TestParseClose(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"63000", 63000, false},
		{"63,100.50", 63100.5, false},
		{"0", 0, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"NaN", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClose(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCSV_Valid(t *testing.T) {
	csvData := `Date,Symbol,ExpiryDate,Open,High,Low,Close
2024-01-02,GOLD,05FEB2024,62900,63200,62800,63000
2024-01-03,GOLD,05FEB2024,63000,63300,62900,63150
`
	set, problems := ParseCSV("05FEB2024.csv", strings.NewReader(csvData), time.Time{})

	assert.Empty(t, problems)
	assert.False(t, set.Skipped)
	assert.Equal(t, 0, set.Malformed)
	require.Len(t, set.Records, 2)
	assert.Equal(t, d(2024, time.January, 2), set.Records[0].TradeDate)
	assert.Equal(t, d(2024, time.February, 5), set.Records[0].ExpiryDate)
	assert.Equal(t, 63150.0, set.Records[1].Close)
}

func TestParseCSV_MalformedRowIsolated(t *testing.T) {
	csvData := `Date,ExpiryDate,Close
2024-01-02,05FEB2024,63000
not-a-date,05FEB2024,63050
2024-01-04,05FEB2024,
2024-01-05,05FEB2024,63200
`
	set, problems := ParseCSV("05FEB2024.csv", strings.NewReader(csvData), time.Time{})

	assert.False(t, set.Skipped)
	assert.Equal(t, 2, set.Malformed)
	require.Len(t, set.Records, 2)
	assert.Equal(t, d(2024, time.January, 5), set.Records[1].TradeDate)

	require.Len(t, problems, 2)
	assert.Equal(t, 3, problems[0].Line)
	assert.Equal(t, ColDate, problems[0].Field)
	assert.Equal(t, 4, problems[1].Line)
	assert.Equal(t, ColClose, problems[1].Field)
}

func TestParseCSV_MissingColumns(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		fallback time.Time
		field    string
	}{
		{"no Close", "Date,ExpiryDate\n2024-01-02,05FEB2024\n", time.Time{}, ColClose},
		{"no Date", "ExpiryDate,Close\n05FEB2024,1\n", time.Time{}, ColDate},
		{"no ExpiryDate and no tag", "Date,Close\n2024-01-02,1\n", time.Time{}, ColExpiryDate},
		{"empty file", "", time.Time{}, "header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, problems := ParseCSV("x.csv", strings.NewReader(tt.data), tt.fallback)

			assert.True(t, set.Skipped)
			assert.Empty(t, set.Records)
			require.Len(t, problems, 1)
			assert.True(t, problems[0].IsFileLevel())
			assert.Equal(t, tt.field, problems[0].Field)
		})
	}
}

func TestParseCSV_FallbackExpiryFromFileName(t *testing.T) {
	csvData := "\ufeffdate,close\n2024-01-02,63000\n"

	set, problems := ParseCSV("05FEB2024.csv", strings.NewReader(csvData), d(2024, time.February, 5))

	assert.Empty(t, problems)
	require.Len(t, set.Records, 1)
	assert.Equal(t, d(2024, time.February, 5), set.Records[0].ExpiryDate)
}
