package soa

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/xuri/excelize/v2"
)

// this file contains the ledger decoders.
// Every decoder preserves the file order of records, it is the order of last
// resort for statements.

// ErrUnsupportedFormat is returned for a ledger file with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported ledger format")

// Formats lists the ledger file extensions that can be decoded.
var Formats = []string{".csv", ".xlsx", ".json", ".jsonl"}

// OpenLedger decodes the ledger file at path, the format is chosen by extension.
//
// The mapping is only used by JSON ledgers, whose column identifiers are
// property names or JSONPath expressions.
func OpenLedger(path string, m ColumnMapping) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeLedger(path, f, m)
}

// DecodeLedger decodes a ledger from r, the format is chosen by the extension of name.
func DecodeLedger(name string, r io.Reader, m ColumnMapping) (*Ledger, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv":
		return DecodeCSV(r)
	case ".xlsx":
		return DecodeXLSX(r)
	case ".json", ".jsonl":
		return DecodeJSON(r, m)
	default:
		return nil, fmt.Errorf("%w %q, want one of %q", ErrUnsupportedFormat, ext, Formats)
	}
}

// DecodeCSV reads a CSV ledger whose first row is the header.
func DecodeCSV(r io.Reader) (*Ledger, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // short and long rows are tolerated like spreadsheets do
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Ledger{Header: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read CSV header: %w", err)
	}
	l := &Ledger{Header: normalizeColumns(header)}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read CSV ledger: %w", err)
		}
		line, _ := cr.FieldPos(0)
		l.appendRow(line, row)
	}
	return l, nil
}

// DecodeXLSX reads the first sheet of a workbook whose first row is the header.
func DecodeXLSX(r io.Reader) (*Ledger, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("cannot open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("cannot read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &Ledger{Header: []string{}}, nil
	}
	l := &Ledger{Header: normalizeColumns(rows[0])}
	for i, row := range rows[1:] {
		l.appendRow(i+2, row)
	}
	return l, nil
}

// normalizeColumns trims header names and makes duplicates unique by suffixing ".1", ".2"...
func normalizeColumns(header []string) []string {
	columns := make([]string, len(header))
	seen := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		columns[i] = h
	}
	return columns
}

// appendRow appends a tabular row, blank rows are skipped.
func (l *Ledger) appendRow(line int, row []string) {
	blank := true
	values := make(map[string]string, len(l.Header))
	for i, col := range l.Header {
		if i < len(row) {
			values[col] = row[i]
			if strings.TrimSpace(row[i]) != "" {
				blank = false
			}
		}
	}
	if blank {
		return
	}
	l.Records = append(l.Records, Record{Line: line, Values: values})
}

// DecodeJSON reads a JSON ledger: either an array of objects or one object per line (JSONL).
//
// Only the columns bound by m are extracted. A column starting with '$' is a
// JSONPath expression evaluated on the record, any other column is a top
// level property name.
func DecodeJSON(r io.Reader, m ColumnMapping) (*Ledger, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var objects []any
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&objects); err != nil {
			return nil, fmt.Errorf("cannot parse JSON ledger: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				objects = append(objects, nil) // keeps line numbers aligned
				continue
			}
			dec := json.NewDecoder(bytes.NewReader(line))
			dec.UseNumber()
			var obj any
			if err := dec.Decode(&obj); err != nil {
				return nil, fmt.Errorf("cannot parse line %d of JSON ledger: %q: %w", len(objects)+1, string(line), err)
			}
			objects = append(objects, obj)
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	l := &Ledger{}
	columns := m.Columns()
	for i, obj := range objects {
		if obj == nil {
			continue
		}
		values := make(map[string]string, len(columns))
		for _, col := range columns {
			values[col] = jsonCell(obj, col)
		}
		l.Records = append(l.Records, Record{Line: i + 1, Values: values})
	}
	return l, nil
}

// jsonCell returns the text of column in obj, "" when it does not resolve.
func jsonCell(obj any, column string) string {
	var v any
	if strings.HasPrefix(column, "$") {
		var err error
		v, err = jsonpath.Get(column, obj)
		if err != nil {
			return ""
		}
		// because jsonpath is never clear about wheter it returns a list of 1 answer, or a single answer:
		// by this call I keep the first one if any
		if list, ok := v.([]any); ok {
			if len(list) == 0 {
				return ""
			}
			v = list[0]
		}
	} else {
		m, ok := obj.(map[string]any)
		if !ok {
			return ""
		}
		v = m[column]
	}
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
