package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"covidsql/internal/errors"
	"covidsql/internal/frame"

	"github.com/xuri/excelize/v2"
)

const utf8BOM = "\ufeff"

// CSVFormat reads comma-separated files with a header row
type CSVFormat struct{}

// Read parses the header and at most opts.NRows records. Records past the
// cap are never parsed.
func (CSVFormat) Read(r io.Reader, opts frame.ReadOptions) (*frame.Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.InvalidInput("CSV file must have a header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	headers := cleanHeaders(header)

	var rows [][]string
	for !reachedCap(len(rows), opts.NRows) {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record %d: %w", len(rows)+1, err)
		}
		if len(record) > len(headers) {
			line, _ := reader.FieldPos(0)
			return nil, errors.InvalidInput(fmt.Sprintf("line %d: expected %d fields, saw %d", line, len(headers), len(record)))
		}
		rows = append(rows, record)
	}

	return frame.New(headers, rows)
}

// WorkbookFormat reads .xlsx workbooks with excelize
type WorkbookFormat struct{}

// Read uses opts.Sheet when the workbook has it, otherwise the first sheet
func (WorkbookFormat) Read(r io.Reader, opts frame.ReadOptions) (*frame.Frame, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}

	iter, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheet, err)
	}
	defer iter.Close()

	if !iter.Next() {
		return nil, errors.InvalidInput(fmt.Sprintf("sheet %s must have a header row", sheet))
	}
	header, err := iter.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s header: %w", sheet, err)
	}
	headers := cleanHeaders(header)

	var rows [][]string
	for !reachedCap(len(rows), opts.NRows) && iter.Next() {
		row, err := iter.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s row %d: %w", sheet, len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", sheet, err)
	}

	return frame.New(headers, rows)
}

// Version reports the excelize module version linked into the binary
func (WorkbookFormat) Version() string {
	return frame.ModuleVersion(excelizeModule)
}

func pickSheet(f *excelize.File, preferred string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", errors.InvalidInput("workbook has no sheets")
	}
	for _, name := range sheets {
		if name == preferred {
			return name, nil
		}
	}
	return sheets[0], nil
}

// cleanHeaders drops a UTF-8 byte order mark; names are otherwise kept as
// written and made unique by frame.New.
func cleanHeaders(raw []string) []string {
	headers := append([]string(nil), raw...)
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}
	return headers
}

func reachedCap(n, limit int) bool {
	return limit > 0 && n >= limit
}
