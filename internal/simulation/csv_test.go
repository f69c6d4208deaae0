package simulation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"portfolio-frontier/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResultsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	trials := []model.TrialResult{
		{Index: 0, Volatility: 0.15, ExpectedReturn: 0.1, SharpeRatio: 0.5333, Weights: model.WeightVector{0.4, 0.6}, Converged: true},
		{Index: 1, Volatility: 0.2, ExpectedReturn: 0.12, SharpeRatio: 0.5, Weights: model.WeightVector{0.25, 0.75}},
	}
	require.NoError(t, WriteResultsCSV(path, []string{"AAPL", "MSFT"}, trials))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Volatility,Return,Sharpe Ratio,AAPL,MSFT,Converged", lines[0])
	assert.Equal(t, "0.15,0.1,0.5333,0.4,0.6,true", lines[1])

	instruments, back, err := ReadResultsCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, instruments)
	assert.Equal(t, trials, back)
}

func TestWriteResultsRejectsWeightMismatch(t *testing.T) {
	var sb strings.Builder
	err := WriteResults(&sb, []string{"A", "B"}, []model.TrialResult{{Weights: model.WeightVector{1}}})
	assert.Error(t, err)
}

func TestReadResultsWithoutConvergedColumn(t *testing.T) {
	in := "Volatility,Return,Sharpe Ratio,A,B\n0.1,0.05,0.3,0.5,0.5\n"
	instruments, trials, err := ReadResults(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, instruments)
	require.Len(t, trials, 1)
	assert.True(t, trials[0].Converged)
	assert.Equal(t, model.WeightVector{0.5, 0.5}, trials[0].Weights)
}

func TestReadResultsRejectsBadHeader(t *testing.T) {
	_, _, err := ReadResults(strings.NewReader("Vol,Return,Sharpe Ratio,A\n"))
	assert.Error(t, err)
}
