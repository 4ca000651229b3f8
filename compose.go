package soa

import (
	"slices"
	"strings"
)

// Compose turns a merchant Statement into its Document under profile p.
//
// Compose is a pure function of its inputs: the same statement and profile
// always give an identical Document.
func Compose(s *Statement, p *LayoutProfile) *Document {
	doc := &Document{
		Title:    p.Title,
		Merchant: s.Merchant,
		AsOf:     s.AsOf,
		Currency: p.Currency,
		Font:     p.Font,
	}

	doc.Blocks = append(doc.Blocks, Banner{
		Mark:  p.BrandMark,
		Color: p.BrandColor,
		Logo:  p.BrandLogo,
		Title: p.Title,
	})

	addr := Addressing{Label: p.RecipientLabel, Recipient: s.Merchant}
	if !s.AsOf.IsZero() {
		addr.AsOf = joinLabel(p.AsOfLabel, s.AsOf.Format(p.AsOfFormat))
	}
	if s.Subsidiary != "" {
		addr.Subsidiary = joinLabel(p.SubsidiaryLabel, s.Subsidiary)
	}
	doc.Blocks = append(doc.Blocks, addr)

	doc.Blocks = append(doc.Blocks, composeTable(s, p))

	doc.Blocks = append(doc.Blocks, Totals{
		Label:  p.TotalsLabel(),
		Amount: s.NetAmountDue.String(),
	})

	if p.PaymentHeading != "" || len(p.PaymentLines) > 0 {
		doc.Blocks = append(doc.Blocks, PaymentInstructions{
			Heading: p.PaymentHeading,
			Lines:   slices.Clone(p.PaymentLines),
		})
	}
	return doc
}

// composeTable lays out the fixed column set of the transaction table.
func composeTable(s *Statement, p *LayoutProfile) Table {
	text := func(label string) Column { return Column{Label: label, Align: AlignLeft} }
	amount := func(label string) Column { return Column{Label: label, Align: p.MoneyAlign, Money: true} }

	t := Table{
		Columns: []Column{
			text(p.Columns.Date),
			text(p.Columns.DocumentNumber),
			text(p.Columns.Type),
			amount(p.Columns.Original),
			amount(p.Columns.Payment),
			amount(p.Columns.Document),
			amount(p.Columns.Accumulated),
		},
		Rows:         make([][]string, 0, len(s.Rows)),
		RepeatHeader: true,
	}
	for _, row := range s.Rows {
		t.Rows = append(t.Rows, []string{
			dateCell(row.TransactionRow, p),
			row.DocumentNumber,
			row.Type,
			FormatMoney(row.OriginalAmount),
			FormatMoney(row.PaymentAmount),
			FormatMoney(row.DocumentAmount),
			FormatMoney(row.AccumulatedBalance),
		})
	}
	return t
}

// dateCell prints the ledger text unless the profile asks for a normalized date.
func dateCell(row TransactionRow, p *LayoutProfile) string {
	if p.DateDisplay != "" && row.HasDate() {
		return row.Date.Format(p.DateDisplay)
	}
	return row.DateText
}

func joinLabel(label, value string) string {
	return strings.TrimSpace(label + " " + value)
}
