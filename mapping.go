package soa

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Field is a semantic ledger field a statement is built from.
type Field string

const (
	FieldMerchant           Field = "merchant"
	FieldDate               Field = "date"
	FieldDocumentNumber     Field = "document_number"
	FieldType               Field = "type"
	FieldOriginalAmount     Field = "original_amount"
	FieldPaymentAmount      Field = "payment_amount"
	FieldDocumentAmount     Field = "document_amount"     // optional, derived when unbound
	FieldAccumulatedBalance Field = "accumulated_balance" // optional, derived when unbound
)

// Fields lists every semantic field in canonical order.
var Fields = []Field{
	FieldMerchant,
	FieldDate,
	FieldDocumentNumber,
	FieldType,
	FieldOriginalAmount,
	FieldPaymentAmount,
	FieldDocumentAmount,
	FieldAccumulatedBalance,
}

// ParseField parses a semantic field name.
func ParseField(s string) (Field, error) {
	f := Field(strings.TrimSpace(s))
	if !slices.Contains(Fields, f) {
		return "", fmt.Errorf("unknown field %q, want one of %q", s, Fields)
	}
	return f, nil
}

// ErrMapping is the root cause of every *MappingError.
var ErrMapping = errors.New("invalid column mapping")

// MappingError reports why a ColumnMapping cannot drive a batch.
type MappingError struct {
	Missing []Field          // required fields without a binding
	Unknown map[Field]string // bound columns absent from the ledger header
}

func (e *MappingError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		names := make([]string, len(e.Missing))
		for i, f := range e.Missing {
			names[i] = string(f)
		}
		parts = append(parts, "missing binding for "+strings.Join(names, ", "))
	}
	for _, f := range Fields {
		if col, ok := e.Unknown[f]; ok {
			parts = append(parts, fmt.Sprintf("column %q bound to %s is not in the ledger", col, f))
		}
	}
	return fmt.Sprintf("%v: %s", ErrMapping, strings.Join(parts, "; "))
}

func (e *MappingError) Unwrap() error { return ErrMapping }

// ColumnMapping binds semantic fields to source column identifiers.
//
// For tabular ledgers a column identifier is a header name, for JSON ledgers
// it is a property name or a JSONPath expression starting with '$'.
// A ColumnMapping is immutable, its zero value binds nothing.
type ColumnMapping struct {
	columns map[Field]string
}

// NewColumnMapping returns a mapping from a copy of columns, blank bindings are dropped.
func NewColumnMapping(columns map[Field]string) ColumnMapping {
	m := ColumnMapping{columns: make(map[Field]string, len(columns))}
	for f, col := range columns {
		if strings.TrimSpace(col) != "" {
			m.columns[f] = col
		}
	}
	return m
}

// Column returns the column bound to f.
func (m ColumnMapping) Column(f Field) (string, bool) {
	col, ok := m.columns[f]
	return col, ok
}

// Has reports whether f is bound.
func (m ColumnMapping) Has(f Field) bool {
	_, ok := m.columns[f]
	return ok
}

// With returns a copy of m where f is bound to column, or unbound if column is blank.
func (m ColumnMapping) With(f Field, column string) ColumnMapping {
	columns := maps.Clone(m.columns)
	if columns == nil {
		columns = make(map[Field]string)
	}
	columns[f] = column
	return NewColumnMapping(columns)
}

// Merge returns a copy of m overridden by every binding of o.
func (m ColumnMapping) Merge(o ColumnMapping) ColumnMapping {
	columns := maps.Clone(m.columns)
	if columns == nil {
		columns = make(map[Field]string)
	}
	maps.Copy(columns, o.columns)
	return NewColumnMapping(columns)
}

// Len returns the number of bound fields.
func (m ColumnMapping) Len() int { return len(m.columns) }

// Validate checks that every required field is bound and, when header is not
// nil, that every bound column exists in it.
func (m ColumnMapping) Validate(required []Field, header []string) error {
	e := &MappingError{}
	if !m.Has(FieldMerchant) {
		e.Missing = append(e.Missing, FieldMerchant)
	}
	for _, f := range Fields {
		if f != FieldMerchant && slices.Contains(required, f) && !m.Has(f) {
			e.Missing = append(e.Missing, f)
		}
	}
	if header != nil {
		for _, f := range Fields {
			col, ok := m.columns[f]
			if ok && !slices.Contains(header, col) {
				if e.Unknown == nil {
					e.Unknown = make(map[Field]string)
				}
				e.Unknown[f] = col
			}
		}
	}
	if len(e.Missing) > 0 || len(e.Unknown) > 0 {
		return e
	}
	return nil
}

// ParseBinding parses a "field=column" binding as given on the command line.
func ParseBinding(s string) (Field, string, error) {
	name, col, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", fmt.Errorf("invalid binding %q, want field=column", s)
	}
	f, err := ParseField(name)
	if err != nil {
		return "", "", err
	}
	return f, strings.TrimSpace(col), nil
}

// MarshalYAML writes the mapping as a "field: column" map in canonical field order.
func (m ColumnMapping) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range Fields {
		if col, ok := m.columns[f]; ok {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: string(f)},
				&yaml.Node{Kind: yaml.ScalarNode, Value: col},
			)
		}
	}
	return node, nil
}

// UnmarshalYAML reads a "field: column" map, unknown fields are an error.
func (m *ColumnMapping) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	columns := make(map[Field]string, len(raw))
	for name, col := range raw {
		f, err := ParseField(name)
		if err != nil {
			return err
		}
		columns[f] = col
	}
	*m = NewColumnMapping(columns)
	return nil
}

// DecodeMapping reads a YAML "field: column" mapping.
func DecodeMapping(r io.Reader) (ColumnMapping, error) {
	var m ColumnMapping
	if err := yaml.NewDecoder(r).Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return ColumnMapping{}, nil
		}
		return ColumnMapping{}, fmt.Errorf("cannot decode mapping: %w", err)
	}
	return m, nil
}

// LoadMapping reads the YAML mapping file at path.
func LoadMapping(path string) (ColumnMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return ColumnMapping{}, err
	}
	defer f.Close()
	return DecodeMapping(f)
}

// synonyms are the normalized header names recognized for each field, by preference.
var synonyms = map[Field][]string{
	FieldMerchant:           {"merchant", "merchantname", "account", "accountname", "customer", "customername", "name"},
	FieldDate:               {"date", "transactiondate", "documentdate", "docdate", "postingdate"},
	FieldDocumentNumber:     {"docnumber", "documentnumber", "docno", "documentno", "invoicenumber", "invoice", "reference", "ref"},
	FieldType:               {"type", "doctype", "documenttype", "transactiontype"},
	FieldOriginalAmount:     {"originalamount", "original", "amount", "grossamount"},
	FieldPaymentAmount:      {"paymentamount", "payment", "amountpaid", "paid"},
	FieldDocumentAmount:     {"documentamount", "document", "openamount", "netamount"},
	FieldAccumulatedBalance: {"accumulatedbalance", "accumulated", "runningbalance", "balance"},
}

func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SuggestMapping guesses a mapping from header names.
//
// Each header is bound at most once, fields are resolved in canonical order
// and synonyms by preference, so the result only depends on the header.
func SuggestMapping(header []string) ColumnMapping {
	used := make(map[int]bool)
	columns := make(map[Field]string)
	for _, f := range Fields {
	search:
		for _, syn := range synonyms[f] {
			for i, h := range header {
				if !used[i] && normalizeHeader(h) == syn {
					used[i] = true
					columns[f] = h
					break search
				}
			}
		}
	}
	return NewColumnMapping(columns)
}
