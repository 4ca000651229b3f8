package soa

import (
	"testing"

	"github.com/etnz/soa/date"
)

func TestProject(t *testing.T) {
	m := defaultMapping().With(FieldDocumentAmount, "Doc Amount")
	p := DefaultProfile()

	tests := []struct {
		name         string
		values       map[string]string
		wantOK       bool
		wantWarnings []WarningKind
		check        func(t *testing.T, r TransactionRow)
	}{
		{
			name:   "complete record",
			values: map[string]string{"Merchant": " Acme ", "Date": "31/1/2026", "Doc Number": "INV-1", "Type": "Invoice", "Original Amount": "1,000.00", "Payment Amount": "250", "Doc Amount": "750"},
			wantOK: true,
			check: func(t *testing.T, r TransactionRow) {
				if r.Merchant != "Acme" {
					t.Errorf("Merchant = %q, want trimmed %q", r.Merchant, "Acme")
				}
				if r.Date != date.New(2026, 1, 31) || r.DateText != "31/1/2026" {
					t.Errorf("Date = %v (%q)", r.Date, r.DateText)
				}
				if r.OriginalAmount.String() != "1,000.00" || r.PaymentAmount.String() != "250.00" || r.SuppliedDocument.String() != "750.00" {
					t.Errorf("amounts = %v %v %v", r.OriginalAmount, r.PaymentAmount, r.SuppliedDocument)
				}
			},
		},
		{
			name:         "blank merchant",
			values:       map[string]string{"Merchant": "   ", "Original Amount": "10"},
			wantWarnings: []WarningKind{RowRejected},
		},
		{
			name:         "absent merchant",
			values:       map[string]string{"Original Amount": "10"},
			wantWarnings: []WarningKind{RowRejected},
		},
		{
			name:         "bad amounts are zero",
			values:       map[string]string{"Merchant": "Acme", "Original Amount": "ten", "Payment Amount": "#N/A"},
			wantOK:       true,
			wantWarnings: []WarningKind{NumericCoercion, NumericCoercion},
			check: func(t *testing.T, r TransactionRow) {
				if r.OriginalAmount.Valid() || !r.OriginalAmount.Decimal().IsZero() {
					t.Errorf("OriginalAmount = %v, want an absent amount", r.OriginalAmount)
				}
			},
		},
		{
			name:   "null text fields are empty",
			values: map[string]string{"Merchant": "Acme"},
			wantOK: true,
			check: func(t *testing.T, r TransactionRow) {
				if r.DocumentNumber != "" || r.Type != "" || r.DateText != "" || r.HasDate() {
					t.Errorf("row = %+v, want empty text fields", r)
				}
			},
		},
		{
			name:   "unparseable date is kept as text",
			values: map[string]string{"Merchant": "Acme", "Date": "end of month"},
			wantOK: true,
			check: func(t *testing.T, r TransactionRow) {
				if r.HasDate() || r.DateText != "end of month" {
					t.Errorf("Date = %v (%q), want unresolved", r.Date, r.DateText)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, warnings, ok := Project(Record{Line: 7, Values: tt.values}, m, p)
			if ok != tt.wantOK {
				t.Fatalf("Project() ok = %v, want %v", ok, tt.wantOK)
			}
			if len(warnings) != len(tt.wantWarnings) {
				t.Fatalf("Project() warnings = %v, want %v", warnings, tt.wantWarnings)
			}
			for i, w := range warnings {
				if w.Kind != tt.wantWarnings[i] || w.Line != 7 {
					t.Errorf("warning %d = %v, want %s on line 7", i, w, tt.wantWarnings[i])
				}
			}
			if tt.check != nil {
				tt.check(t, r)
			}
		})
	}
}

func TestProjectAll(t *testing.T) {
	l := mustDecodeCSV(t, ledgerCSV)
	rows, warnings := ProjectAll(l, defaultMapping(), DefaultProfile())

	if len(rows) != 5 {
		t.Errorf("ProjectAll() returned %d rows, want 5", len(rows))
	}
	for _, r := range rows {
		if r.Merchant == "" {
			t.Errorf("row on line %d has no merchant", r.Line)
		}
	}
	kinds := make(map[WarningKind]int)
	for _, w := range warnings {
		kinds[w.Kind]++
	}
	if kinds[RowRejected] != 1 || kinds[NumericCoercion] != 1 {
		t.Errorf("warnings = %v, want one rejected row and one coercion", warnings)
	}
}
