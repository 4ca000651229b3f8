package soa

import (
	"fmt"
	"slices"

	"github.com/etnz/soa/date"
)

// ComputedRow is a TransactionRow with its derived amounts.
type ComputedRow struct {
	TransactionRow
	DocumentAmount     Money // net effect of the row
	AccumulatedBalance Money // running balance after the row
}

// Statement is the aggregate of one merchant for one batch run.
type Statement struct {
	Merchant     string
	Rows         []ComputedRow
	NetAmountDue Money
	AsOf         date.Date
	Subsidiary   string
	DateOrdered  bool // rows were sorted by date rather than kept in ledger order
}

// ComputeOptions configures the Balance Calculator for one run.
type ComputeOptions struct {
	AsOf        date.Date
	Subsidiary  string
	BalanceMode BalanceMode

	// SuppliedDocument uses the ledger document amount instead of original - payment.
	SuppliedDocument bool
	// SuppliedBalance is set when the ledger has an accumulated balance column.
	// In derived mode it is only checked against the computed balance.
	SuppliedBalance bool

	// Merchants lists accounts that get a statement even without any row.
	// They come after the merchants discovered in the ledger, in list order.
	Merchants []string
}

// Compute groups rows by merchant and computes every statement.
//
// Statements are returned in merchant first-seen order, followed by the
// extra Merchants without rows. Within a statement, rows are sorted by date
// only if every row has a date, otherwise they keep the ledger order.
func Compute(rows []TransactionRow, opts ComputeOptions) ([]*Statement, []Warning) {
	var order []string
	partitions := make(map[string][]TransactionRow)
	for _, row := range rows {
		if _, ok := partitions[row.Merchant]; !ok {
			order = append(order, row.Merchant)
		}
		partitions[row.Merchant] = append(partitions[row.Merchant], row)
	}
	for _, merchant := range opts.Merchants {
		if _, ok := partitions[merchant]; !ok && merchant != "" {
			order = append(order, merchant)
			partitions[merchant] = nil
		}
	}

	var warnings []Warning
	statements := make([]*Statement, 0, len(order))
	for _, merchant := range order {
		s, w := computeStatement(merchant, partitions[merchant], opts)
		statements = append(statements, s)
		warnings = append(warnings, w...)
	}
	return statements, warnings
}

func computeStatement(merchant string, rows []TransactionRow, opts ComputeOptions) (*Statement, []Warning) {
	var warnings []Warning
	s := &Statement{
		Merchant:   merchant,
		AsOf:       opts.AsOf,
		Subsidiary: opts.Subsidiary,
		Rows:       make([]ComputedRow, len(rows)),
	}

	ordered := slices.Clone(rows)
	undated := slices.IndexFunc(ordered, func(r TransactionRow) bool { return !r.HasDate() })
	if undated < 0 {
		slices.SortStableFunc(ordered, func(a, b TransactionRow) int { return a.Date.Compare(b.Date) })
		s.DateOrdered = len(ordered) > 0
	} else {
		warnings = append(warnings, Warning{
			Kind:     DateFallback,
			Line:     ordered[undated].Line,
			Merchant: merchant,
			Field:    FieldDate,
			Value:    ordered[undated].DateText,
			Message:  "at least one date cannot be parsed, rows keep the ledger order",
		})
	}

	balance := M(0)
	s.NetAmountDue = M(0)
	for i, row := range ordered {
		c := ComputedRow{TransactionRow: row}
		if opts.SuppliedDocument {
			c.DocumentAmount = M(row.SuppliedDocument.Decimal())
		} else {
			c.DocumentAmount = row.OriginalAmount.Sub(row.PaymentAmount)
		}

		switch opts.BalanceMode {
		case BalanceSupplied:
			c.AccumulatedBalance = row.SuppliedBalance
			if c.AccumulatedBalance.Valid() {
				s.NetAmountDue = c.AccumulatedBalance
			}
		default:
			balance = balance.Add(c.DocumentAmount)
			c.AccumulatedBalance = balance
			s.NetAmountDue = balance
			if opts.SuppliedBalance && row.SuppliedBalance.Valid() && !sameCents(row.SuppliedBalance, balance) {
				warnings = append(warnings, Warning{
					Kind:     BalanceMismatch,
					Line:     row.Line,
					Merchant: merchant,
					Field:    FieldAccumulatedBalance,
					Value:    row.SuppliedBalance.String(),
					Message:  fmt.Sprintf("ledger balance %s differs from computed balance %s", row.SuppliedBalance, balance),
				})
			}
		}
		s.Rows[i] = c
	}
	return s, warnings
}

// sameCents reports whether a and b print the same.
func sameCents(a, b Money) bool {
	return a.Decimal().Round(fraction).Equal(b.Decimal().Round(fraction))
}
