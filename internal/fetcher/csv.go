// Package fetcher parses tabular inventory files (CSV and XLSX) into a
// header row plus data rows.
package fetcher

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Table is a parsed tabular file: the header row and the data rows below it.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadCSV parses a CSV file. Suppliers export from mixed tooling, so the
// reader falls back from UTF-8 to Windows-1252 (a superset of Latin-1 for
// the printable range) and sniffs ';' as an alternative delimiter.
func ReadCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "csv: read input")
	}

	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return nil, eris.Wrap(err, "csv: decode windows-1252")
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow ragged rows

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, eris.New("csv: file has no rows")
	}

	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// sniffDelimiter picks ';' when the first line carries more semicolons than
// commas, which is how most European spreadsheet exports arrive.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
