package sampler

import (
	"testing"
	"time"

	"portfolio-frontier/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(t *testing.T, rows int) *model.ReturnSeries {
	t.Helper()
	data := make([][]float64, rows)
	dates := make([]time.Time, rows)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range data {
		data[i] = []float64{float64(i), -float64(i)}
		dates[i] = start.AddDate(0, 0, i)
	}
	s, err := model.NewReturnSeries([]string{"A", "B"}, dates, data)
	require.NoError(t, err)
	return s
}

func TestNewRejectsBadRange(t *testing.T) {
	_, err := New(0, 1)
	assert.Error(t, err)
	_, err = New(2, 1)
	assert.Error(t, err)
	s, err := New(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.MaxYears)
}

func TestDrawFixedHorizonTakesMostRecentRows(t *testing.T) {
	s, err := New(1, 1)
	require.NoError(t, err)
	ser := series(t, 300)

	smp := s.Draw(TrialRand(7, 0), ser)
	assert.Equal(t, 252, smp.Rows())
	assert.Equal(t, 252, smp.Requested)
	assert.False(t, smp.Clamped())
	assert.Equal(t, 48.0, smp.At(0, 0))
	assert.Equal(t, 299.0, smp.At(smp.Rows()-1, 0))
	assert.Equal(t, ser.Len(), 300)
}

func TestDrawClampsToSeriesLength(t *testing.T) {
	s, err := New(2, 3)
	require.NoError(t, err)
	ser := series(t, 100)

	smp := s.Draw(TrialRand(1, 3), ser)
	assert.Equal(t, 100, smp.Rows())
	assert.True(t, smp.Clamped())
	assert.GreaterOrEqual(t, smp.Requested, 504)
}

func TestDrawHorizonWithinRange(t *testing.T) {
	s, err := New(1, 3)
	require.NoError(t, err)
	ser := series(t, 1000)
	for trial := 0; trial < 200; trial++ {
		smp := s.Draw(TrialRand(99, trial), ser)
		assert.GreaterOrEqual(t, smp.Years, 1.0)
		assert.Less(t, smp.Years, 3.0)
		assert.Equal(t, int(smp.Years*252), smp.Requested)
		assert.Equal(t, smp.Requested, smp.Rows())
	}
}

func TestTrialRandIsDeterministic(t *testing.T) {
	a := TrialRand(42, 5)
	b := TrialRand(42, 5)
	c := TrialRand(42, 6)
	av, bv, cv := a.Float64(), b.Float64(), c.Float64()
	assert.Equal(t, av, bv)
	assert.NotEqual(t, av, cv)
}
