package production

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected []Record
		err      error
	}{
		"with date": {
			input: "Fecha,Producto,Cantidad,Defectos\n2024-01-01,A,10,1\n2024-01-02,B,5,0\n",
			expected: []Record{
				{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Product: "A", Quantity: 10, Defects: 1},
				{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Product: "B", Quantity: 5, Defects: 0},
			},
		},
		"without date reordered": {
			input: "Defectos,Cantidad,Producto\n3,20,A\n",
			expected: []Record{
				{Product: "A", Quantity: 20, Defects: 3},
			},
		},
		"byte order mark header": {
			input: "\ufeffProducto,Cantidad,Defectos\nA,10,1\nA,20,3\nB,5,0\n",
			expected: []Record{
				{Product: "A", Quantity: 10, Defects: 1},
				{Product: "A", Quantity: 20, Defects: 3},
				{Product: "B", Quantity: 5, Defects: 0},
			},
		},
		"missing column": {
			input: "Producto,Cantidad\nA,10\n",
			err:   ErrMissingColumn,
		},
		"empty": {
			input: "",
			err:   ErrMissingColumn,
		},
		"malformed quantity": {
			input: "Producto,Cantidad,Defectos\nA,10,1\nB,ten,0\n",
			err:   ErrMalformedValue,
		},
		"malformed date": {
			input: "Fecha,Producto,Cantidad,Defectos\nyesterday,A,10,1\n",
			err:   ErrMalformedValue,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Read(strings.NewReader(td.input))
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}

	_, err := Read(strings.NewReader("Producto,Cantidad,Defectos\nA,10,1\nB,ten,0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3 column Cantidad")
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadCSV(filepath.Join(dir, "datos_produccion.csv"))
	require.ErrorIs(t, err, ErrMissingInputFile)
	assert.Contains(t, err.Error(), "datos_produccion.csv")

	path := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(path, []byte("Producto,Cantidad,Defectos\nA,10,1\n"), 0o644))
	records, err := LoadCSV(path)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAggregate(t *testing.T) {
	records := []Record{
		{Product: "B", Quantity: 5, Defects: 0},
		{Product: "A", Quantity: 10, Defects: 1},
		{Product: "A", Quantity: 20, Defects: 3},
	}
	expected := []Group{
		{Product: "A", TotalProduced: 30, MeanDefects: 2.0},
		{Product: "B", TotalProduced: 5, MeanDefects: 0.0},
	}
	groups := Aggregate(records)
	assert.Equal(t, expected, groups)
	assert.Empty(t, Aggregate(nil))

	testData := map[string]struct {
		withIndex bool
		expected  string
	}{
		"with index":    {true, "Producto,Total_Producido,Total_Defectos\nA,30,2.0\nB,5,0.0\n"},
		"without index": {false, "Total_Producido,Total_Defectos\n30,2.0\n5,0.0\n"},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, groups, td.withIndex))
			assert.Equal(t, td.expected, buf.String())
		})
	}
}

func TestWriteFiles(t *testing.T) {
	groups := []Group{
		{Product: "A", TotalProduced: 30, MeanDefects: 2.5},
		{Product: "B", TotalProduced: 5, MeanDefects: 0},
	}
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "resumen_produccion.csv")
	require.NoError(t, WriteCSVFile(csvPath, groups, true))
	out, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "Producto,Total_Producido,Total_Defectos\nA,30,2.5\nB,5,0.0\n", string(out))

	parquetPath := filepath.Join(dir, "resumen_produccion.parquet")
	require.NoError(t, WriteParquet(parquetPath, groups))
	loaded, err := ReadParquet(parquetPath)
	require.NoError(t, err)
	assert.Equal(t, groups, loaded)
}

func TestSimulate(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	products := []string{"A", "B", "C"}
	records := Simulate(timedataset.NewSource(timedataset.DefaultSeed), start, 10, products)
	require.Len(t, records, 30)
	for _, rec := range records {
		assert.GreaterOrEqual(t, rec.Quantity, 80.0)
		assert.Less(t, rec.Quantity, 150.0)
		assert.GreaterOrEqual(t, rec.Defects, 0.0)
		assert.Less(t, rec.Defects, 5.0)
	}
	assert.Equal(t, records, Simulate(timedataset.NewSource(timedataset.DefaultSeed), start, 10, products))

	var buf bytes.Buffer
	require.NoError(t, WriteRecordsCSV(&buf, records))
	loaded, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}
