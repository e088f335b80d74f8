// Package dataset profiles tabular uploads so prompts can describe them
// without shipping the whole file to a model.
package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Options controls profiling behavior.
type Options struct {
	// MaxRows limits rows processed; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows are kept.
	SampleRows int
	// Delimiter for CSV. If 0, it is sniffed from the header line.
	Delimiter rune
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
}

// DefaultOptions returns reasonable defaults for profiling an upload.
func DefaultOptions() Options {
	return Options{
		MaxRows:      100000,
		SampleRows:   5,
		Correlations: true,
	}
}

// Column kinds.
const (
	KindNumeric     = "numeric"
	KindDatetime    = "datetime"
	KindCategorical = "categorical"
	KindText        = "text"
	KindUnknown     = "unknown"
)

// Profile summarises a tabular dataset.
type Profile struct {
	Name       string
	Rows       int
	Processed  int
	Duplicates int
	Header     []string
	Cols       []ColumnSummary
	Samples    [][]string
	Corr       []PairCorr
	Warnings   []string
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string
	NonNull int
	Missing int
	Unique  int

	Min  float64
	Max  float64
	Mean float64
	Std  float64

	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// PairCorr is the Pearson correlation of two numeric columns.
type PairCorr struct {
	A, B string
	R    float64
}

// ErrNotTabular is returned when the payload has no readable CSV header.
var ErrNotTabular = errors.New("dataset: content is not delimited text")

type colAcc struct {
	name   string
	nonNil int
	miss   int

	// numeric stats via Welford
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64

	numCnt int
	dtCnt  int
	txtCnt int
	cats   map[string]int
}

type pairAcc struct {
	n, sumX, sumY, sumXX, sumYY, sumXY float64
}

// Analyze profiles CSV content held in memory.
func Analyze(name string, data []byte, opt Options) (*Profile, error) {
	if !isText(data) {
		return nil, ErrNotTabular
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(data)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.ReuseRecord = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNotTabular
		}
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	ncol := len(header)
	p := &Profile{Name: name, Header: make([]string, ncol)}

	cols := make([]*colAcc, ncol)
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		p.Header[i] = h
		cols[i] = &colAcc{name: h, min: math.Inf(1), max: math.Inf(-1), cats: make(map[string]int)}
	}

	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}

	seen := make(map[string]bool)
	pairs := make(map[[2]int]*pairAcc)

	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("dataset: read row %d: %w", p.Rows+1, err)
		}
		p.Rows++
		if len(rec) != ncol {
			row := make([]string, ncol)
			copy(row, rec)
			rec = row
		}
		if p.Processed >= maxRows {
			continue
		}
		p.Processed++

		key := strings.Join(rec, "\x1f")
		if seen[key] {
			p.Duplicates++
		}
		seen[key] = true

		if len(p.Samples) < sampleRows {
			p.Samples = append(p.Samples, append([]string(nil), rec...))
		}

		rowNums := make(map[int]float64)
		for j := 0; j < ncol; j++ {
			v := strings.TrimSpace(rec[j])
			c := cols[j]
			if isMissing(v) {
				c.miss++
				continue
			}
			c.nonNil++
			if x, ok := parseNumeric(v); ok {
				c.numCnt++
				c.n++
				c.min = math.Min(c.min, x)
				c.max = math.Max(c.max, x)
				delta := x - c.mean
				c.mean += delta / float64(c.n)
				c.m2 += delta * (x - c.mean)
				rowNums[j] = x
				continue
			}
			if _, ok := parseTimeMaybe(v); ok {
				c.dtCnt++
				continue
			}
			c.txtCnt++
			if len(c.cats) <= 10000 && len(v) <= 64 {
				c.cats[v]++
			}
		}

		if opt.Correlations && len(rowNums) >= 2 {
			idxs := make([]int, 0, len(rowNums))
			for j := range rowNums {
				idxs = append(idxs, j)
			}
			sort.Ints(idxs)
			for a := 0; a < len(idxs); a++ {
				for b := a + 1; b < len(idxs); b++ {
					x, y := rowNums[idxs[a]], rowNums[idxs[b]]
					k := [2]int{idxs[a], idxs[b]}
					pa := pairs[k]
					if pa == nil {
						pa = &pairAcc{}
						pairs[k] = pa
					}
					pa.n++
					pa.sumX += x
					pa.sumY += y
					pa.sumXX += x * x
					pa.sumYY += y * y
					pa.sumXY += x * y
				}
			}
		}
	}

	numeric := make(map[int]bool)
	p.Cols = make([]ColumnSummary, 0, ncol)
	for idx, c := range cols {
		s := ColumnSummary{Name: c.name, NonNull: c.nonNil, Missing: c.miss, Kind: KindUnknown}
		switch {
		case c.numCnt > 0 && c.numCnt >= c.dtCnt && c.numCnt >= c.txtCnt:
			s.Kind = KindNumeric
			s.Min, s.Max, s.Mean = c.min, c.max, c.mean
			if c.n > 1 {
				s.Std = math.Sqrt(c.m2 / float64(c.n-1))
			}
			numeric[idx] = true
		case c.dtCnt > 0 && c.dtCnt >= c.txtCnt:
			s.Kind = KindDatetime
		case len(c.cats) > 0 && len(c.cats) <= max(20, c.txtCnt/2):
			s.Kind = KindCategorical
			s.Unique = len(c.cats)
			s.TopValues = topValues(c.cats, 5)
		case c.txtCnt > 0:
			s.Kind = KindText
			s.Unique = len(c.cats)
		}
		p.Cols = append(p.Cols, s)
	}

	for k, pa := range pairs {
		if !numeric[k[0]] || !numeric[k[1]] || pa.n < 3 {
			continue
		}
		denom := math.Sqrt((pa.n*pa.sumXX - pa.sumX*pa.sumX) * (pa.n*pa.sumYY - pa.sumY*pa.sumY))
		if denom == 0 || math.IsNaN(denom) {
			continue
		}
		r := (pa.n*pa.sumXY - pa.sumX*pa.sumY) / denom
		p.Corr = append(p.Corr, PairCorr{A: cols[k[0]].name, B: cols[k[1]].name, R: r})
	}
	sort.Slice(p.Corr, func(i, j int) bool {
		ai, aj := math.Abs(p.Corr[i].R), math.Abs(p.Corr[j].R)
		if ai == aj {
			return p.Corr[i].A+p.Corr[i].B < p.Corr[j].A+p.Corr[j].B
		}
		return ai > aj
	})

	if p.Processed < p.Rows {
		p.Warnings = append(p.Warnings, fmt.Sprintf("processed only %d/%d rows", p.Processed, p.Rows))
	}
	return p, nil
}

func topValues(cats map[string]int, n int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > n {
		tops = tops[:n]
	}
	return tops
}

// MissingCells returns the total number of empty cells across all columns.
func (p *Profile) MissingCells() int {
	total := 0
	for _, c := range p.Cols {
		total += c.Missing
	}
	return total
}

// Column returns the summary for name.
func (p *Profile) Column(name string) (ColumnSummary, bool) {
	for _, c := range p.Cols {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

func isMissing(v string) bool {
	switch strings.ToLower(v) {
	case "", "na", "n/a", "nan", "null", "none", "-":
		return true
	}
	return false
}

// isText rejects binary payloads such as spreadsheets uploaded as .xlsx.
func isText(data []byte) bool {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	return len(bytes.TrimSpace(head)) > 0 && bytes.IndexByte(head, 0) < 0
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string) (float64, bool) {
	raw := strings.TrimSpace(strings.TrimSuffix(s, "%"))
	raw = strings.TrimPrefix(raw, "$")
	if strings.Count(raw, ",") > 0 && strings.Contains(raw, ".") {
		raw = strings.ReplaceAll(raw, ",", "")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
