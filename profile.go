package soa

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Align is the horizontal alignment of a table column.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// BalanceMode selects where accumulated balances come from.
type BalanceMode string

const (
	// BalanceDerived computes the running sum of document amounts.
	BalanceDerived BalanceMode = "derived"
	// BalanceSupplied prints the accumulated balance column of the ledger as is.
	BalanceSupplied BalanceMode = "supplied"
)

// CollisionPolicy decides what happens when two merchants share a file name.
type CollisionPolicy string

const (
	// CollisionSuffix appends _2, _3... to later merchants in discovery order.
	CollisionSuffix CollisionPolicy = "suffix"
	// CollisionReject fails the batch.
	CollisionReject CollisionPolicy = "reject"
)

// ColumnLabels are the headers of the transaction table.
type ColumnLabels struct {
	Date           string `yaml:"date" validate:"required"`
	DocumentNumber string `yaml:"document_number" validate:"required"`
	Type           string `yaml:"type" validate:"required"`
	Original       string `yaml:"original_amount" validate:"required"`
	Payment        string `yaml:"payment_amount" validate:"required"`
	Document       string `yaml:"document_amount" validate:"required"`
	Accumulated    string `yaml:"accumulated_balance" validate:"required"`
}

// LayoutProfile is the immutable layout and policy configuration of a batch.
//
// It is read from YAML on top of the built-in profile, so a profile file
// only needs the keys it changes.
type LayoutProfile struct {
	Name       string `yaml:"name" validate:"required"`
	BrandMark  string `yaml:"brand_mark"`
	BrandColor string `yaml:"brand_color" validate:"omitempty,hexcolor"`
	BrandLogo  string `yaml:"brand_logo"` // optional image path, omitted when it cannot be loaded
	Font       string `yaml:"font"`       // optional TTF path, core font when it cannot be loaded
	Title      string `yaml:"title" validate:"required"`

	RecipientLabel  string `yaml:"recipient_label"`
	AsOfLabel       string `yaml:"as_of_label" validate:"required"`
	AsOfFormat      string `yaml:"as_of_format" validate:"required"`
	SubsidiaryLabel string `yaml:"subsidiary_label"`

	Columns     ColumnLabels `yaml:"columns"`
	MoneyAlign  Align        `yaml:"money_align" validate:"oneof=center right"`
	DateFormats []string     `yaml:"date_formats" validate:"min=1,dive,required"`
	DateDisplay string       `yaml:"date_display"` // empty prints the ledger cell unchanged

	Currency    string `yaml:"currency" validate:"required,iso4217"`
	NetDueLabel string `yaml:"net_due_label" validate:"required"`

	PaymentHeading string   `yaml:"payment_heading"`
	PaymentLines   []string `yaml:"payment_lines"`

	BalanceMode BalanceMode     `yaml:"balance_mode" validate:"oneof=derived supplied"`
	Required    []Field         `yaml:"required"`
	EmitEmpty   bool            `yaml:"emit_empty"`
	Collision   CollisionPolicy `yaml:"collision" validate:"oneof=suffix reject"`
	FilePrefix  string          `yaml:"file_prefix"`
}

// DefaultProfile returns the built-in Australian profile.
func DefaultProfile() *LayoutProfile {
	return &LayoutProfile{
		Name:            "au",
		BrandMark:       "SHOPBACK",
		BrandColor:      "#E31E24",
		Title:           "STATEMENT OF ACCOUNT",
		RecipientLabel:  "To:",
		AsOfLabel:       "Statement as at",
		AsOfFormat:      "02-Jan-2006",
		SubsidiaryLabel: "Subsidiary",
		Columns: ColumnLabels{
			Date:           "Date",
			DocumentNumber: "Doc Number",
			Type:           "Type",
			Original:       "Original",
			Payment:        "Payment",
			Document:       "Document",
			Accumulated:    "Accumulated",
		},
		MoneyAlign:     AlignCenter,
		DateFormats:    []string{"2006-01-02", "2/1/2006", "2-Jan-2006", "2 Jan 2006", "2006/01/02"},
		Currency:       "AUD",
		NetDueLabel:    "NET AMOUNT DUE FROM YOU",
		PaymentHeading: "Payment should be made to the following details:",
		PaymentLines: []string{
			"Bank Name : ANZ Banking Group Limited",
			"Account Name : ShopBack Australia Pty Ltd",
			"Account Number : 012010 307004743",
			"SWIFT Code : ANZBAU3M",
			"Branch Code :",
			"Currency : AUD",
		},
		BalanceMode: BalanceDerived,
		Required:    []Field{FieldDate, FieldDocumentNumber, FieldType, FieldOriginalAmount, FieldPaymentAmount},
		Collision:   CollisionSuffix,
		FilePrefix:  "SOA_",
	}
}

// profiles are the built-in profiles by name.
var profiles = map[string]func() *LayoutProfile{
	"au": DefaultProfile,
}

// ProfileNames returns the names of the built-in profiles, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuiltinProfile returns a fresh copy of a built-in profile.
func BuiltinProfile(name string) (*LayoutProfile, error) {
	f, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q, want one of %q", name, ProfileNames())
	}
	return f(), nil
}

// DecodeProfile reads a YAML profile from r on top of the built-in profile and validates it.
func DecodeProfile(r io.Reader) (*LayoutProfile, error) {
	p := DefaultProfile()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("cannot parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadProfile returns the built-in profile called name, or reads the YAML file at name.
func LoadProfile(name string) (*LayoutProfile, error) {
	if name == "" {
		return DefaultProfile(), nil
	}
	if f, ok := profiles[name]; ok {
		return f(), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("cannot read profile: %w", err)
	}
	p, err := DecodeProfile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", name, err)
	}
	return p, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the profile for correctness.
func (p *LayoutProfile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile %q: %w", p.Name, err)
	}
	for _, f := range p.Required {
		if _, err := ParseField(string(f)); err != nil {
			return fmt.Errorf("invalid profile %q: required: %w", p.Name, err)
		}
	}
	return nil
}

// RequiredFields returns the fields a mapping must bind to run a batch with this profile.
func (p *LayoutProfile) RequiredFields() []Field {
	required := []Field{FieldMerchant}
	for _, f := range p.Required {
		if !slices.Contains(required, f) {
			required = append(required, f)
		}
	}
	if p.BalanceMode == BalanceSupplied && !slices.Contains(required, FieldAccumulatedBalance) {
		required = append(required, FieldAccumulatedBalance)
	}
	return required
}

// TotalsLabel returns the label of the net amount due, the currency is stated there.
func (p *LayoutProfile) TotalsLabel() string {
	return fmt.Sprintf("%s (%s)", p.NetDueLabel, p.Currency)
}

// Encode writes the profile as YAML.
func (p *LayoutProfile) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}
