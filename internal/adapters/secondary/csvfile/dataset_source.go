package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"fuel-blend-prediction-service/internal/core/domain"
	ports "fuel-blend-prediction-service/internal/core/ports/output"
)

type datasetSource struct {
	path  string
	comma rune
}

// NewDatasetSource creates a DatasetSource reading a delimited file with a
// header row. A zero comma means ','.
func NewDatasetSource(path string, comma rune) ports.DatasetSource {
	if comma == 0 {
		comma = ','
	}
	return &datasetSource{path: path, comma: comma}
}

func (s *datasetSource) Describe() string {
	return "file://" + s.path
}

func (s *datasetSource) Ping(ctx context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDataSource, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", domain.ErrDataSource, s.path)
	}
	return nil
}

func (s *datasetSource) Load(ctx context.Context) (*domain.Frame, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataSource, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = s.comma

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return domain.NewFrame([]string{}, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %w", domain.ErrDataSource, s.path, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	var cells [][]string
	for {
		if len(cells)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrDataSource, err)
			}
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrDataSource, s.path, err)
		}
		cells = append(cells, rec)
	}

	frame, err := domain.NewFrame(header, inferColumns(len(header), cells))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDataSource, s.path, err)
	}
	return frame, nil
}

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindString
)

// missingValues are the cell spellings read as a missing value.
var missingValues = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {}, "None": {},
}

func isMissing(c string) bool {
	_, ok := missingValues[c]
	return ok
}

// inferColumns types each column as a whole: int64 when every present cell
// is an integer, float64 when every present cell is numeric, string
// otherwise. Missing cells become nil.
func inferColumns(width int, cells [][]string) [][]any {
	kinds := make([]columnKind, width)
	for _, rec := range cells {
		for j, c := range rec {
			if isMissing(c) || kinds[j] == kindString {
				continue
			}
			if kinds[j] == kindInt {
				if _, err := strconv.ParseInt(c, 10, 64); err == nil {
					continue
				}
				kinds[j] = kindFloat
			}
			if v, err := strconv.ParseFloat(c, 64); err != nil || math.IsInf(v, 0) {
				kinds[j] = kindString
			}
		}
	}

	rows := make([][]any, len(cells))
	for i, rec := range cells {
		row := make([]any, len(rec))
		for j, c := range rec {
			row[j] = convertCell(kinds[j], c)
		}
		rows[i] = row
	}
	return rows
}

func convertCell(kind columnKind, c string) any {
	if isMissing(c) {
		return nil
	}
	switch kind {
	case kindInt:
		v, _ := strconv.ParseInt(c, 10, 64)
		return v
	case kindFloat:
		v, _ := strconv.ParseFloat(c, 64)
		if math.IsNaN(v) {
			return nil
		}
		return v
	default:
		return c
	}
}
