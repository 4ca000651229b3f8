package soa

import (
	"encoding/json"

	"github.com/etnz/soa/date"
)

// BlockKind tags the variants of a Document block.
type BlockKind string

const (
	KindBanner              BlockKind = "banner"
	KindAddressing          BlockKind = "addressing"
	KindTable               BlockKind = "table"
	KindTotals              BlockKind = "totals"
	KindPaymentInstructions BlockKind = "payment_instructions"
)

// Block is one section of a Document.
//
// The set of blocks is closed: Banner, Addressing, Table, Totals and
// PaymentInstructions. Renderers switch on the concrete type.
type Block interface {
	Kind() BlockKind
	json.Marshaler
}

// Banner is the branding block: a brand mark on a colored band, and the document title.
type Banner struct {
	Mark  string `json:"mark,omitempty"`
	Color string `json:"color,omitempty"` // #RRGGBB
	Logo  string `json:"logo,omitempty"`  // optional image path, renderers fall back to Mark
	Title string `json:"title"`
}

// Addressing is the recipient block and the statement references.
type Addressing struct {
	Label      string `json:"label,omitempty"` // e.g. "To:"
	Recipient  string `json:"recipient"`
	AsOf       string `json:"as_of,omitempty"`      // e.g. "Statement as at 31-Jan-2026"
	Subsidiary string `json:"subsidiary,omitempty"` // e.g. "Subsidiary ShopBack Australia Pty Ltd"
}

// Column describes a column of a Table.
type Column struct {
	Label string `json:"label"`
	Align Align  `json:"align"`
	Money bool   `json:"money,omitempty"`
}

// Table is the transaction table. Cells are already formatted.
type Table struct {
	Columns      []Column   `json:"columns"`
	Rows         [][]string `json:"rows"`
	RepeatHeader bool       `json:"repeat_header,omitempty"` // header is repeated on every page
}

// Totals is the headline total of the statement.
type Totals struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// PaymentInstructions is the static block telling where to pay.
type PaymentInstructions struct {
	Heading string   `json:"heading,omitempty"`
	Lines   []string `json:"lines"`
}

func (Banner) Kind() BlockKind              { return KindBanner }
func (Addressing) Kind() BlockKind          { return KindAddressing }
func (Table) Kind() BlockKind               { return KindTable }
func (Totals) Kind() BlockKind              { return KindTotals }
func (PaymentInstructions) Kind() BlockKind { return KindPaymentInstructions }

// marshalBlock writes the kind tag first, then the block fields.
func marshalBlock(kind BlockKind, fields any) ([]byte, error) {
	var w jsonObjectWriter
	w.Append("kind", kind)
	w.EmbedFrom(fields)
	return w.MarshalJSON()
}

func (b Banner) MarshalJSON() ([]byte, error) {
	type plain Banner
	return marshalBlock(b.Kind(), plain(b))
}

func (b Addressing) MarshalJSON() ([]byte, error) {
	type plain Addressing
	return marshalBlock(b.Kind(), plain(b))
}

func (b Table) MarshalJSON() ([]byte, error) {
	type plain Table
	return marshalBlock(b.Kind(), plain(b))
}

func (b Totals) MarshalJSON() ([]byte, error) {
	type plain Totals
	return marshalBlock(b.Kind(), plain(b))
}

func (b PaymentInstructions) MarshalJSON() ([]byte, error) {
	type plain PaymentInstructions
	return marshalBlock(b.Kind(), plain(b))
}

// Document is the declarative, renderer agnostic structure of one statement.
//
// It has no notion of pages, fonts or coordinates, those belong to renderers.
type Document struct {
	Title    string    // document title, also used as metadata by renderers
	Merchant string    // recipient of the statement
	AsOf     date.Date // statement date, renderers use it as the creation date
	Currency string
	Font     string // optional font file requested by the profile
	Blocks   []Block
}

// Banner returns the first banner block, if any.
func (d *Document) Banner() (Banner, bool) { return first[Banner](d) }

// Table returns the first table block, if any.
func (d *Document) Table() (Table, bool) { return first[Table](d) }

// Totals returns the first totals block, if any.
func (d *Document) Totals() (Totals, bool) { return first[Totals](d) }

func first[T Block](d *Document) (T, bool) {
	for _, b := range d.Blocks {
		if v, ok := b.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (d *Document) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("title", d.Title)
	w.Append("merchant", d.Merchant)
	if !d.AsOf.IsZero() {
		w.Append("as_of", d.AsOf)
	}
	w.Optional("currency", d.Currency)
	w.Optional("font", d.Font)
	blocks := d.Blocks
	if blocks == nil {
		blocks = []Block{}
	}
	w.Append("blocks", blocks)
	return w.MarshalJSON()
}
