package data

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"portfolio-frontier/internal/model"
)

const dateLayout = "2006-01-02"

// PriceFile is the on-disk JSON form of a PriceTable.
type PriceFile struct {
	Instruments []string                    `json:"instruments"`
	Series      map[string][]PriceFilePoint `json:"series"`
}

type PriceFilePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// Table converts the file form into a PriceTable. Instrument names and
// series keys are canonicalized with model.Symbol. When Instruments is empty
// the series keys are used in sorted order.
func (f PriceFile) Table() (*model.PriceTable, error) {
	series := make(map[string][]PriceFilePoint, len(f.Series))
	for k, points := range f.Series {
		sym := model.Symbol(k)
		if _, dup := series[sym]; dup {
			return nil, fmt.Errorf("duplicate series for instrument %q", sym)
		}
		series[sym] = points
	}
	var instruments []string
	if len(f.Instruments) == 0 {
		for k := range series {
			instruments = append(instruments, k)
		}
		sort.Strings(instruments)
	} else {
		instruments = make([]string, len(f.Instruments))
		for i, s := range f.Instruments {
			instruments[i] = model.Symbol(s)
		}
	}
	table := model.NewPriceTable(instruments)
	for _, inst := range instruments {
		points, ok := series[inst]
		if !ok {
			return nil, fmt.Errorf("no series for instrument %q", inst)
		}
		for i, p := range points {
			d, err := time.Parse(dateLayout, p.Date)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", inst, i, err)
			}
			if err := table.Add(inst, d, p.Close); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

// NewPriceFile is the inverse of PriceFile.Table.
func NewPriceFile(table *model.PriceTable) PriceFile {
	f := PriceFile{
		Instruments: table.Instruments(),
		Series:      map[string][]PriceFilePoint{},
	}
	for _, inst := range f.Instruments {
		points := table.Points(inst)
		out := make([]PriceFilePoint, len(points))
		for i, p := range points {
			out[i] = PriceFilePoint{Date: p.Date.Format(dateLayout), Close: p.Close}
		}
		f.Series[inst] = out
	}
	return f
}

// LoadPrices reads a price file, choosing the format by extension (.csv or JSON).
func LoadPrices(path string) (*model.PriceTable, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return LoadPricesCSV(path)
	}
	return LoadPricesJSON(path)
}

func LoadPricesJSON(path string) (*model.PriceTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f PriceFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f.Table()
}

func SavePricesJSON(path string, table *model.PriceTable) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	raw, err := json.MarshalIndent(NewPriceFile(table), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func LoadPricesCSV(path string) (*model.PriceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPricesCSV(f)
}

// ReadPricesCSV parses a wide table: a date column followed by one close
// column per instrument. Empty cells are missing observations.
func ReadPricesCSV(in io.Reader) (*model.PriceTable, error) {
	r := csv.NewReader(in)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || !strings.EqualFold(header[0], "date") {
		return nil, fmt.Errorf("header must start with date and name at least one instrument")
	}
	instruments := make([]string, len(header)-1)
	for i, h := range header[1:] {
		instruments[i] = model.Symbol(h)
	}
	table := model.NewPriceTable(instruments)

	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		d, err := time.Parse(dateLayout, strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for i, cell := range rec[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, instruments[i], err)
			}
			if err := table.Add(instruments[i], d, v); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}
