package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNormalize_EquivalentFormats(t *testing.T) {
	n := NewNormalizer(nil)

	res := n.Normalize([]any{"15/03/2023", "2023-03-15"})

	require.Len(t, res.Dates, 2)
	assert.Equal(t, day(2023, time.March, 15), res.Dates[0])
	assert.Equal(t, day(2023, time.March, 15), res.Dates[1])
	assert.Zero(t, res.Synthetic)
}

func TestNormalize_NativeTimesAreTruncated(t *testing.T) {
	n := NewNormalizer(nil)
	in := time.Date(2023, time.June, 1, 13, 45, 0, 0, time.UTC)

	res := n.Normalize([]any{in})

	assert.Equal(t, day(2023, time.June, 1), res.Dates[0])
	assert.Equal(t, StageFlexible, res.Stages[0])
}

func TestNormalize_SyntheticFallback(t *testing.T) {
	n := NewNormalizer(nil)

	res := n.Normalize([]any{"garbage", nil, "2023-05-01", "??"})

	assert.Equal(t, 3, res.Synthetic)
	assert.Equal(t, day(2023, time.January, 1), res.Dates[0])
	assert.Equal(t, day(2023, time.January, 2), res.Dates[1])
	assert.Equal(t, day(2023, time.May, 1), res.Dates[2])
	assert.Equal(t, day(2023, time.January, 3), res.Dates[3])
	assert.Equal(t, StageSynthetic, res.Stages[3])

	for i, d := range res.Dates {
		assert.False(t, d.IsZero(), "row %d", i)
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	res := NewNormalizer(nil).Normalize(nil)
	assert.Empty(t, res.Dates)
	assert.Zero(t, res.Synthetic)
}

func TestLayoutStage(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name   string
		values []any
		want   []time.Time
	}{
		{
			name:   "single layout resolves every row",
			values: []any{"03/04/2023", "13/04/2023"},
			want:   []time.Time{day(2023, time.April, 3), day(2023, time.April, 13)},
		},
		{
			name:   "layouts merged in order",
			values: []any{"04/13/2023", "13/04/2023"},
			want:   []time.Time{day(2023, time.April, 13), day(2023, time.April, 13)},
		},
		{
			name:   "textual month",
			values: []any{"15-Mar-2023"},
			want:   []time.Time{day(2023, time.March, 15)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Result{
				Dates:  make([]time.Time, len(tt.values)),
				Stages: make([]Stage, len(tt.values)),
			}
			layoutStage(n, tt.values, &res)
			assert.Equal(t, tt.want, res.Dates)
			for _, s := range res.Stages {
				assert.Equal(t, StageLayout, s)
			}
		})
	}
}

func TestFromComponents(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2023 03 15", day(2023, time.March, 15), true},
		{"15 03 2023", day(2023, time.March, 15), true},
		{"week 15 / 03 / 2023", day(2023, time.March, 15), true},
		{"2023-02-30", time.Time{}, false},
		{"15 03", time.Time{}, false},
		{"15 03 23", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := fromComponents(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestProbe(t *testing.T) {
	n := NewNormalizer(nil)

	assert.True(t, n.Probe("2023-01-01"))
	assert.True(t, n.Probe("15/03/2023"))
	assert.True(t, n.Probe(time.Now()))
	assert.False(t, n.Probe("North plant"))
	assert.False(t, n.Probe(nil))
}

func TestNewFormats(t *testing.T) {
	f, err := NewFormats([]string{"2006-01-02", " 02/01/2006 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"2006-01-02", "02/01/2006"}, f.Layouts())

	_, err = NewFormats([]string{"15:04"})
	assert.Error(t, err)

	_, err = NewFormats(nil)
	assert.Error(t, err)

	assert.Equal(t, DefaultLayouts, DefaultFormats().Layouts())
}
