package fetcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadXLSX parses the first sheet of an XLSX workbook.
func ReadXLSX(path string) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("xlsx: sheet has no rows")
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = strings.TrimSpace(cell.String())
		}
		rows = append(rows, cells)
	}

	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

// ReadFile parses path according to its extension.
func ReadFile(path string) (*Table, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "csv":
		f, err := openFile(path)
		if err != nil {
			return nil, err
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f)
	case "xlsx":
		return ReadXLSX(path)
	case "xls":
		// The legacy OLE workbook format has no parser here.
		return nil, eris.New("fetcher: legacy .xls workbooks are not supported, save as .xlsx or .csv")
	default:
		return nil, eris.Errorf("fetcher: unsupported file extension %q", ext)
	}
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open file")
	}
	return f, nil
}
