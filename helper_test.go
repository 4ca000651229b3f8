package soa

import (
	"strings"
	"testing"

	"github.com/etnz/soa/date"
)

// ledgerCSV is a small ledger with three merchants, one blank merchant and one bad amount.
const ledgerCSV = `Merchant,Date,Doc Number,Type,Original Amount,Payment Amount
Acme Pty Ltd,2026-01-20,INV-2,Invoice,80.00,
Beta Co,2026-01-03,INV-9,Invoice,"1,000.00",250.00
Acme Pty Ltd,2026-01-05,INV-1,Invoice,100.00,100.00
,2026-01-06,INV-3,Invoice,50.00,
Gamma/Delta,2026-01-07,CN-1,Credit Note,(20.00),
Beta Co,2026-01-15,PAY-1,Payment,,n/a
`

// defaultMapping binds the columns of ledgerCSV.
func defaultMapping() ColumnMapping {
	return NewColumnMapping(map[Field]string{
		FieldMerchant:       "Merchant",
		FieldDate:           "Date",
		FieldDocumentNumber: "Doc Number",
		FieldType:           "Type",
		FieldOriginalAmount: "Original Amount",
		FieldPaymentAmount:  "Payment Amount",
	})
}

func mustDecodeCSV(t *testing.T, s string) *Ledger {
	t.Helper()
	l, err := DecodeCSV(strings.NewReader(s))
	if err != nil {
		t.Fatalf("DecodeCSV() failed: %v", err)
	}
	return l
}

func mustMoney(t *testing.T, s string) Money {
	t.Helper()
	m, err := ParseMoney(s)
	if err != nil {
		t.Fatalf("ParseMoney(%q) failed: %v", s, err)
	}
	return m
}

// row builds a transaction row, day is either an ISO date or any unparseable text.
func row(line int, merchant, day, original, payment string) TransactionRow {
	r := TransactionRow{Line: line, Merchant: merchant, DateText: day, DocumentNumber: "D" + day}
	if on, err := date.ParseAny(day, "2006-01-02"); err == nil {
		r.Date = on
	}
	r.OriginalAmount, _ = ParseMoney(original)
	r.PaymentAmount, _ = ParseMoney(payment)
	return r
}

// amounts returns the printed amounts of a column of computed rows.
func amounts(rows []ComputedRow, get func(ComputedRow) Money) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = get(r).String()
	}
	return out
}
