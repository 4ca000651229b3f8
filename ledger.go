package soa

import (
	"slices"
	"strings"
)

// Record is one raw ledger entry, as read from the ledger file.
//
// An absent column and an empty cell are both null.
type Record struct {
	Line   int               // 1-based line (or row) in the ledger file
	Values map[string]string // cell text by column identifier
}

// Get returns the text of column, "" for null.
func (r Record) Get(column string) string { return r.Values[column] }

// IsNull reports whether column is absent or blank.
func (r Record) IsNull(column string) bool { return strings.TrimSpace(r.Values[column]) == "" }

// Ledger is the full input of a batch: records across all merchants, in file order.
type Ledger struct {
	// Header lists the columns of a tabular ledger, in file order.
	// It is nil for ledgers whose records are not tabular (JSON).
	Header  []string
	Records []Record
}

// Len returns the number of records.
func (l *Ledger) Len() int { return len(l.Records) }

// Sample returns at most n records from the start of the ledger.
func (l *Ledger) Sample(n int) []Record {
	return l.Records[:min(n, len(l.Records))]
}

// EffectiveMapping returns the mapping a batch over l uses.
//
// Without guess it is explicit. With guess, the header heuristics bind the
// fields explicit leaves unbound, except the optional document amount and
// accumulated balance that only an explicit binding can supply. Ledgers
// without a header only use the explicit bindings.
func (l *Ledger) EffectiveMapping(explicit ColumnMapping, guess bool) ColumnMapping {
	if !guess || l.Header == nil {
		return explicit
	}
	taken := explicit.Columns()
	columns := make(map[Field]string)
	for f, col := range SuggestMapping(l.Header).columns {
		if f == FieldDocumentAmount || f == FieldAccumulatedBalance || explicit.Has(f) || slices.Contains(taken, col) {
			continue
		}
		columns[f] = col
	}
	return NewColumnMapping(columns).Merge(explicit)
}

// Columns returns the bound column identifiers in canonical field order.
func (m ColumnMapping) Columns() []string {
	var cols []string
	for _, f := range Fields {
		if col, ok := m.columns[f]; ok {
			cols = append(cols, col)
		}
	}
	return cols
}
