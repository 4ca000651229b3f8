package soa

import (
	"fmt"
	"strings"

	"github.com/etnz/soa/date"
)

// TransactionRow is one ledger entry after projection through a ColumnMapping.
type TransactionRow struct {
	Line           int       // ledger line of the source record
	Merchant       string    // grouping key, never empty
	DateText       string    // date cell as found in the ledger
	Date           date.Date // zero when DateText is not a date
	DocumentNumber string
	Type           string
	OriginalAmount Money
	PaymentAmount  Money

	// Supplied values, only meaningful when the corresponding field is bound.
	SuppliedDocument Money
	SuppliedBalance  Money
}

// HasDate reports whether the row date was resolved.
func (t TransactionRow) HasDate() bool { return !t.Date.IsZero() }

// Project converts a raw record into a TransactionRow.
//
// A record without a merchant is rejected: ok is false and the warning says
// why. Unparseable amounts are kept as invalid Money (counted as zero) and
// reported as warnings, they never drop the row.
func Project(rec Record, m ColumnMapping, p *LayoutProfile) (row TransactionRow, warnings []Warning, ok bool) {
	col, _ := m.Column(FieldMerchant)
	merchant := strings.TrimSpace(rec.Get(col))
	if merchant == "" {
		return row, []Warning{{
			Kind:    RowRejected,
			Line:    rec.Line,
			Field:   FieldMerchant,
			Message: "record has no merchant and is excluded from all statements",
		}}, false
	}

	text := func(f Field) string {
		col, ok := m.Column(f)
		if !ok {
			return ""
		}
		return strings.TrimSpace(rec.Get(col))
	}
	amount := func(f Field) Money {
		s := text(f)
		v, err := ParseMoney(s)
		if err != nil {
			warnings = append(warnings, Warning{
				Kind:     NumericCoercion,
				Line:     rec.Line,
				Merchant: merchant,
				Field:    f,
				Value:    s,
				Message:  fmt.Sprintf("%q is not an amount, counted as zero", s),
			})
		}
		return v
	}

	row = TransactionRow{
		Line:             rec.Line,
		Merchant:         merchant,
		DateText:         text(FieldDate),
		DocumentNumber:   text(FieldDocumentNumber),
		Type:             text(FieldType),
		OriginalAmount:   amount(FieldOriginalAmount),
		PaymentAmount:    amount(FieldPaymentAmount),
		SuppliedDocument: amount(FieldDocumentAmount),
		SuppliedBalance:  amount(FieldAccumulatedBalance),
	}
	if row.DateText != "" {
		if on, err := date.ParseAny(row.DateText, p.DateFormats...); err == nil {
			row.Date = on
		}
	}
	return row, warnings, true
}

// ProjectAll projects every record of l, in ledger order.
func ProjectAll(l *Ledger, m ColumnMapping, p *LayoutProfile) ([]TransactionRow, []Warning) {
	rows := make([]TransactionRow, 0, len(l.Records))
	var warnings []Warning
	for _, rec := range l.Records {
		row, w, ok := Project(rec, m, p)
		warnings = append(warnings, w...)
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, warnings
}
