package ingest

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// ReadCSV reads candidates from a comma-separated export whose first row is
// the header.
func ReadCSV(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck // read-only

	rows, err := readCSVRows(f)
	if err != nil {
		return Result{}, err
	}
	return toCandidates(rows)
}

func readCSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, record)
	}
}
