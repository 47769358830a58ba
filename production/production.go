// Package production loads per product production records and aggregates them into totals per
// product.
package production

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/parquet-go/parquet-go"
)

var (
	ErrMissingInputFile = errors.New("missing input file")
	ErrMissingColumn    = errors.New("missing required column")
	ErrMalformedValue   = errors.New("malformed value")
)

const (
	ColDate     = "Fecha"
	ColProduct  = "Producto"
	ColQuantity = "Cantidad"
	ColDefects  = "Defectos"

	ColTotalProduced = "Total_Producido"
	ColMeanDefects   = "Total_Defectos"
)

// Record is one production entry. Date is zero when the input has no date column.
type Record struct {
	Date     time.Time
	Product  string
	Quantity float64
	Defects  float64
}

// Group is the aggregate of every record of a product
type Group struct {
	Product       string  `parquet:"producto,snappy"`
	TotalProduced float64 `parquet:"total_producido,snappy"`
	MeanDefects   float64 `parquet:"total_defectos,snappy"`
}

// LoadCSV reads the records of the csv file at path
func LoadCSV(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s, %w", path, ErrMissingInputFile)
		}
		return nil, fmt.Errorf("unable to open %s, %w", path, err)
	}
	defer func() { _ = file.Close() }()

	records, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s, %w", path, err)
	}
	return records, nil
}

// Read parses csv records with a header row. Producto, Cantidad and Defectos are required while
// Fecha is optional. Errors name the row and column of the offending value.
func Read(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no header row, %w", ErrMissingColumn)
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range []string{ColProduct, ColQuantity, ColDefects} {
		if _, exists := cols[name]; !exists {
			return nil, fmt.Errorf("%s, %w", name, ErrMissingColumn)
		}
	}
	dateIdx, hasDate := cols[ColDate]

	var records []Record
	for row := 2; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		rec := Record{Product: fields[cols[ColProduct]]}
		if rec.Quantity, err = parseFloat(fields, cols[ColQuantity], row, ColQuantity); err != nil {
			return nil, err
		}
		if rec.Defects, err = parseFloat(fields, cols[ColDefects], row, ColDefects); err != nil {
			return nil, err
		}
		if hasDate {
			if rec.Date, err = parseDate(fields[dateIdx]); err != nil {
				return nil, fmt.Errorf("row %d column %s %q, %w", row, ColDate, fields[dateIdx], ErrMalformedValue)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseFloat(fields []string, idx, row int, col string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("row %d column %s %q, %w", row, col, fields[idx], ErrMalformedValue)
	}
	return v, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.DateOnly, time.DateTime, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrMalformedValue
}

// Aggregate sums the quantity and averages the defects per product ordered by product name
func Aggregate(records []Record) []Group {
	type acc struct {
		quantity, defects float64
		cnt               int
	}
	groups := make(map[string]*acc)
	for _, rec := range records {
		a, exists := groups[rec.Product]
		if !exists {
			a = &acc{}
			groups[rec.Product] = a
		}
		a.quantity += rec.Quantity
		a.defects += rec.Defects
		a.cnt++
	}

	res := make([]Group, 0, len(groups))
	for _, name := range slices.Sorted(maps.Keys(groups)) {
		a := groups[name]
		res = append(res, Group{
			Product:       name,
			TotalProduced: a.quantity,
			MeanDefects:   a.defects / float64(a.cnt),
		})
	}
	return res
}

// formatFloat keeps a decimal point on whole numbers so means read as floats
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// WriteCSV writes the groups with the product column as the index when withIndex is set
func WriteCSV(w io.Writer, groups []Group, withIndex bool) error {
	cw := csv.NewWriter(w)

	header := []string{ColTotalProduced, ColMeanDefects}
	if withIndex {
		header = append([]string{ColProduct}, header...)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, g := range groups {
		rec := []string{
			strconv.FormatFloat(g.TotalProduced, 'f', -1, 64),
			formatFloat(g.MeanDefects),
		}
		if withIndex {
			rec = append([]string{g.Product}, rec...)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the groups to a csv file at path
func WriteCSVFile(path string, groups []Group, withIndex bool) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	if err := WriteCSV(file, groups, withIndex); err != nil {
		_ = file.Close()
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return file.Close()
}

// WriteParquet writes the groups to a snappy compressed parquet file at path
func WriteParquet(path string, groups []Group) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[Group](file)
	if _, err := writer.Write(groups); err != nil {
		_ = writer.Close()
		return fmt.Errorf("unable to write parquet rows, %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("unable to close parquet writer, %w", err)
	}
	return nil
}

// ReadParquet reads back groups written by WriteParquet
func ReadParquet(path string) ([]Group, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s, %w", path, err)
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[Group](file)
	defer func() { _ = reader.Close() }()

	groups := make([]Group, reader.NumRows())
	n, err := reader.Read(groups)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to read %s, %w", path, err)
	}
	return groups[:n], nil
}

// Simulate generates one record per product per day with a uniform quantity in [80, 150) and
// uniform defects in [0, 5)
func Simulate(rng *rand.Rand, start time.Time, days int, products []string) []Record {
	dates := timedataset.GenerateRange(start, days, timedataset.Daily)
	records := make([]Record, 0, len(dates)*len(products))
	for _, d := range dates {
		qty := timedataset.GenerateUniformInt(rng, len(products), 80, 150)
		defects := timedataset.GenerateUniformInt(rng, len(products), 0, 5)
		for i, p := range products {
			records = append(records, Record{Date: d, Product: p, Quantity: qty[i], Defects: defects[i]})
		}
	}
	return records
}

// WriteRecordsCSV writes records in the layout read by Read
func WriteRecordsCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColDate, ColProduct, ColQuantity, ColDefects}); err != nil {
		return err
	}
	for _, rec := range records {
		date := ""
		if !rec.Date.IsZero() {
			date = rec.Date.Format(time.DateOnly)
		}
		if err := cw.Write([]string{
			date,
			rec.Product,
			strconv.FormatFloat(rec.Quantity, 'f', -1, 64),
			strconv.FormatFloat(rec.Defects, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
