package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")
	ErrNoRows            = errors.New("file needs a header row and at least one data row")
)

// Load reads a sales table from a .csv or .xlsx file. Excel workbooks are read from
// their first sheet.
func Load(path string) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return ReadCSV(file)
	case ".xlsx":
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return ReadExcel(file)
	}
	return nil, fmt.Errorf("%s, %w", path, ErrUnsupportedFormat)
}

// ReadCSV parses comma delimited text with a header row.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to parse csv, %w", err)
	}
	return fromRows(rows)
}

// ReadExcel parses the first sheet of an xlsx workbook with a header row.
func ReadExcel(r io.Reader) (*Frame, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to open workbook, %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet rows, %w", err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (*Frame, error) {
	if len(rows) < 2 {
		return nil, ErrNoRows
	}
	return FromRecords(rows[0], rows[1:])
}
