package simulation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"portfolio-frontier/internal/model"
)

var fixedColumns = []string{"Volatility", "Return", "Sharpe Ratio"}

// WriteResultsCSV writes one row per trial, in slice order.
func WriteResultsCSV(path string, instruments []string, trials []model.TrialResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteResults(f, instruments, trials); err != nil {
		return err
	}
	return f.Close()
}

func WriteResults(out io.Writer, instruments []string, trials []model.TrialResult) error {
	w := csv.NewWriter(out)

	header := append(append([]string{}, fixedColumns...), instruments...)
	header = append(header, "Converged")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range trials {
		if len(t.Weights) != len(instruments) {
			return fmt.Errorf("trial %d has %d weights for %d instruments", t.Index, len(t.Weights), len(instruments))
		}
		row := make([]string, 0, len(header))
		row = append(row, fmtFloat(t.Volatility), fmtFloat(t.ExpectedReturn), fmtFloat(t.SharpeRatio))
		for _, x := range t.Weights {
			row = append(row, fmtFloat(x))
		}
		row = append(row, strconv.FormatBool(t.Converged))
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ReadResultsCSV parses a file written by WriteResultsCSV. Trial indices are
// the row positions. A missing Converged column reads as converged.
func ReadResultsCSV(path string) ([]string, []model.TrialResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadResults(f)
}

func ReadResults(in io.Reader) ([]string, []model.TrialResult, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < len(fixedColumns)+1 {
		return nil, nil, fmt.Errorf("header has %d columns, want at least %d", len(header), len(fixedColumns)+1)
	}
	for i, c := range fixedColumns {
		if header[i] != c {
			return nil, nil, fmt.Errorf("column %d is %q, want %q", i, header[i], c)
		}
	}
	instruments := header[len(fixedColumns):]
	hasConverged := instruments[len(instruments)-1] == "Converged"
	if hasConverged {
		instruments = instruments[:len(instruments)-1]
	}
	instruments = append([]string(nil), instruments...)

	var trials []model.TrialResult
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		if len(rec) != len(header) {
			return nil, nil, fmt.Errorf("line %d: %d fields, want %d", line, len(rec), len(header))
		}
		vals := make([]float64, len(fixedColumns)+len(instruments))
		for i := range vals {
			v, err := strconv.ParseFloat(rec[i], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d column %q: %w", line, header[i], err)
			}
			vals[i] = v
		}
		t := model.TrialResult{
			Index:          len(trials),
			Volatility:     vals[0],
			ExpectedReturn: vals[1],
			SharpeRatio:    vals[2],
			Weights:        model.WeightVector(vals[len(fixedColumns):]),
			Converged:      true,
		}
		if hasConverged {
			t.Converged, err = strconv.ParseBool(rec[len(rec)-1])
			if err != nil {
				return nil, nil, fmt.Errorf("line %d column Converged: %w", line, err)
			}
		}
		trials = append(trials, t)
	}
	return instruments, trials, nil
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
