package soa

import "fmt"

// WarningKind classifies a non-fatal observation made while generating statements.
type WarningKind string

const (
	// RowRejected is a record without a merchant, it is excluded from every statement.
	RowRejected WarningKind = "row-rejected"
	// NumericCoercion is an unparseable amount, it counts as zero.
	NumericCoercion WarningKind = "numeric-coercion"
	// DateFallback is a merchant with at least one unparseable date, its rows keep the ledger order.
	DateFallback WarningKind = "date-fallback"
	// BalanceMismatch is a supplied accumulated balance that differs from the computed one.
	BalanceMismatch WarningKind = "balance-mismatch"
	// NameCollision is a merchant whose file name had to be disambiguated.
	NameCollision WarningKind = "name-collision"
	// AssetUnavailable is a branding asset or font that could not be loaded by a renderer.
	AssetUnavailable WarningKind = "asset-unavailable"
)

// Warning is a structured report of something the pipeline tolerated.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Line     int         `json:"line,omitempty"` // ledger line of the record, 0 when not applicable
	Merchant string      `json:"merchant,omitempty"`
	Field    Field       `json:"field,omitempty"`
	Value    string      `json:"value,omitempty"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	s := string(w.Kind)
	if w.Line > 0 {
		s += fmt.Sprintf(" line %d", w.Line)
	}
	if w.Merchant != "" {
		s += fmt.Sprintf(" merchant %q", w.Merchant)
	}
	if w.Field != "" {
		s += fmt.Sprintf(" field %s", w.Field)
	}
	return s + ": " + w.Message
}
