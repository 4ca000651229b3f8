package soa

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDecodeCSV(t *testing.T) {
	input := "\ufeffMerchant, Amount ,Amount\n" +
		"Acme,10,11\n" +
		",,\n" +
		"\"Beta\nCo\",20\n" +
		"Gamma,30,31,extra\n"

	l := mustDecodeCSV(t, input)

	if want := []string{"Merchant", "Amount", "Amount.1"}; !slices.Equal(l.Header, want) {
		t.Errorf("Header = %q, want %q", l.Header, want)
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (blank rows skipped)", l.Len())
	}
	var lines []int
	for _, r := range l.Records {
		lines = append(lines, r.Line)
	}
	if want := []int{2, 4, 6}; !slices.Equal(lines, want) {
		t.Errorf("record lines = %v, want %v", lines, want)
	}
	if got := l.Records[1].Get("Merchant"); got != "Beta\nCo" {
		t.Errorf("quoted cell = %q", got)
	}
	if !l.Records[1].IsNull("Amount.1") {
		t.Error("short row must leave missing cells null")
	}
	if got := l.Records[2].Get("Amount.1"); got != "31" {
		t.Errorf("long row cell = %q, want %q", got, "31")
	}
}

func TestDecodeCSVEmpty(t *testing.T) {
	l := mustDecodeCSV(t, "")
	if l.Header == nil || l.Len() != 0 {
		t.Errorf("empty CSV = %+v, want an empty tabular ledger", l)
	}
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Merchant", "Date", "Original Amount"},
		{"Acme", "2026-01-05", "100.00"},
		{},
		{"Beta", "2026-01-06", 25.5},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() failed: %v", err)
	}

	l, err := DecodeLedger("ledger.XLSX", buf, ColumnMapping{})
	if err != nil {
		t.Fatalf("DecodeLedger() failed: %v", err)
	}
	if want := []string{"Merchant", "Date", "Original Amount"}; !slices.Equal(l.Header, want) {
		t.Errorf("Header = %q, want %q", l.Header, want)
	}
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	if r := l.Records[1]; r.Line != 4 || r.Get("Merchant") != "Beta" || r.Get("Original Amount") != "25.5" {
		t.Errorf("second record = %+v", r)
	}
}

func TestDecodeJSON(t *testing.T) {
	m := NewColumnMapping(map[Field]string{
		FieldMerchant:       "$.merchant.name",
		FieldDate:           "date",
		FieldOriginalAmount: "amount",
	})

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "array",
			input: `[{"merchant":{"name":"Acme"},"date":"2026-01-05","amount":100.10}, {"merchant":{"name":"Beta"},"amount":"7"}]`,
		},
		{
			name:  "lines",
			input: "{\"merchant\":{\"name\":\"Acme\"},\"date\":\"2026-01-05\",\"amount\":100.10}\n\n{\"merchant\":{\"name\":\"Beta\"},\"amount\":\"7\"}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := DecodeJSON(strings.NewReader(tt.input), m)
			if err != nil {
				t.Fatalf("DecodeJSON() failed: %v", err)
			}
			if l.Header != nil {
				t.Errorf("Header = %q, want nil for JSON ledgers", l.Header)
			}
			if l.Len() != 2 {
				t.Fatalf("Len() = %d, want 2", l.Len())
			}
			acme, beta := l.Records[0], l.Records[1]
			if acme.Get("$.merchant.name") != "Acme" || acme.Get("amount") != "100.10" || acme.Get("date") != "2026-01-05" {
				t.Errorf("first record = %+v", acme)
			}
			if beta.Get("$.merchant.name") != "Beta" || !beta.IsNull("date") || beta.Get("amount") != "7" {
				t.Errorf("second record = %+v", beta)
			}
		})
	}
}

func TestDecodeJSONLineNumbers(t *testing.T) {
	m := NewColumnMapping(map[Field]string{FieldMerchant: "m"})
	l, err := DecodeJSON(strings.NewReader("{\"m\":\"a\"}\n\n{\"m\":\"b\"}\n"), m)
	if err != nil {
		t.Fatalf("DecodeJSON() failed: %v", err)
	}
	if l.Records[1].Line != 3 {
		t.Errorf("second record line = %d, want 3", l.Records[1].Line)
	}

	if _, err := DecodeJSON(strings.NewReader("{\"m\":\"a\"}\n{oops\n"), m); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("DecodeJSON() of a broken line = %v, want an error on line 2", err)
	}
}

func TestDecodeLedgerUnsupported(t *testing.T) {
	_, err := DecodeLedger("ledger.ods", strings.NewReader(""), ColumnMapping{})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("DecodeLedger() = %v, want ErrUnsupportedFormat", err)
	}
}
