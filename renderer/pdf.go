package renderer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/etnz/soa"
	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
)

// A4 portrait layout, in millimeters.
const (
	pageMargin   = 15.0
	bannerHeight = 28.0
	rowHeight    = 6.0
	headerHeight = 7.0
	fontFamily   = "Helvetica"
	customFamily = "statement"
)

// columnWidths are the widths of the transaction table columns, they add up to the printable width.
var columnWidths = []float64{24, 30, 24, 25.5, 25.5, 25.5, 25.5}

// PDF renders statements as A4 PDF documents.
//
// Branding assets (logo and font) are optional: an asset that cannot be
// loaded is left out, the brand mark is printed as text and the core
// Helvetica font is used instead. Each missing asset is reported once.
type PDF struct {
	log zerolog.Logger

	mu       sync.Mutex
	warned   map[string]bool
	warnings []soa.Warning
}

// NewPDF returns a PDF renderer logging to log.
func NewPDF(log zerolog.Logger) *PDF {
	return &PDF{log: log, warned: make(map[string]bool)}
}

func (*PDF) Extension() string { return "pdf" }

// Warnings returns the assets that could not be loaded so far.
func (r *PDF) Warnings() []soa.Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]soa.Warning(nil), r.warnings...)
}

func (r *PDF) assetUnavailable(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.warned[path] {
		return
	}
	r.warned[path] = true
	w := soa.Warning{
		Kind:    soa.AssetUnavailable,
		Value:   path,
		Message: fmt.Sprintf("asset %q is omitted: %v", path, err),
	}
	r.warnings = append(r.warnings, w)
	r.log.Warn().Str("kind", string(w.Kind)).Str("asset", path).Err(err).Msg("asset unavailable")
}

// page holds the state of one document being drawn.
type page struct {
	*fpdf.Fpdf
	family string
	tr     func(string) string
}

func (r *PDF) Render(d *soa.Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	created := time.Unix(0, 0).UTC()
	if !d.AsOf.IsZero() {
		created = d.AsOf.Time()
	}
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(created)
	pdf.SetCatalogSort(true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)

	p := &page{Fpdf: pdf, family: fontFamily, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if d.Font != "" {
		r.loadFont(p, d.Font)
	}
	pdf.SetTitle(d.Title+" "+d.Merchant, true)
	pdf.SetSubject(d.Merchant, true)
	pdf.AddPage()

	for _, b := range d.Blocks {
		switch b := b.(type) {
		case soa.Banner:
			r.banner(p, b)
		case soa.Addressing:
			addressing(p, b)
		case soa.Table:
			table(p, b)
		case soa.Totals:
			totals(p, b)
		case soa.PaymentInstructions:
			payment(p, b)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("cannot draw statement: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("cannot write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// loadFont switches p to the TTF font at path, or keeps the core font.
func (r *PDF) loadFont(p *page, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.assetUnavailable(path, err)
		return
	}
	p.AddUTF8FontFromBytes(customFamily, "", data)
	p.AddUTF8FontFromBytes(customFamily, "B", data)
	if err := p.Error(); err != nil {
		p.ClearError()
		r.assetUnavailable(path, err)
		return
	}
	p.family = customFamily
	p.tr = func(s string) string { return s }
}

// loadLogo registers the image at path and returns its name, or "" when it cannot be used.
func (r *PDF) loadLogo(p *page, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		r.assetUnavailable(path, err)
		return ""
	}
	opts := fpdf.ImageOptions{ImageType: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")}
	p.RegisterImageOptionsReader(path, opts, bytes.NewReader(data))
	if err := p.Error(); err != nil {
		p.ClearError()
		r.assetUnavailable(path, err)
		return ""
	}
	return path
}

func (r *PDF) banner(p *page, b soa.Banner) {
	width, _ := p.GetPageSize()
	red, green, blue := parseColor(b.Color)
	p.SetFillColor(red, green, blue)
	p.Rect(0, 0, width, bannerHeight, "F")

	logo := ""
	if b.Logo != "" {
		logo = r.loadLogo(p, b.Logo)
	}
	if logo != "" {
		p.ImageOptions(logo, pageMargin, 6, 0, bannerHeight-12, false, fpdf.ImageOptions{}, 0, "")
	} else if b.Mark != "" {
		p.SetTextColor(255, 255, 255)
		p.SetFont(p.family, "B", 22)
		p.Text(pageMargin, bannerHeight/2+3, p.tr(b.Mark))
	}

	p.SetTextColor(0, 0, 0)
	p.SetFont(p.family, "B", 16)
	p.SetXY(pageMargin, bannerHeight+6)
	p.CellFormat(printableWidth(p), 8, p.tr(b.Title), "", 1, "C", false, 0, "")
	p.Ln(4)
}

func addressing(p *page, b soa.Addressing) {
	if b.Recipient != "" {
		p.SetFont(p.family, "B", 10)
		labelWidth := 0.0
		if b.Label != "" {
			labelWidth = p.GetStringWidth(b.Label) + 2
			p.CellFormat(labelWidth, 6, p.tr(b.Label), "", 0, "L", false, 0, "")
		}
		p.CellFormat(printableWidth(p)-labelWidth, 6, p.tr(b.Recipient), "", 1, "L", false, 0, "")
	}
	p.SetFont(p.family, "", 10)
	for _, line := range []string{b.AsOf, b.Subsidiary} {
		if line != "" {
			p.CellFormat(printableWidth(p), 6, p.tr(line), "", 1, "L", false, 0, "")
		}
	}
	p.Ln(6)
}

func table(p *page, t soa.Table) {
	widths := scaledWidths(p, len(t.Columns))
	header := func() {
		p.SetFont(p.family, "B", 8)
		p.SetFillColor(230, 230, 230)
		for i, c := range t.Columns {
			p.CellFormat(widths[i], headerHeight, p.tr(c.Label), "1", 0, "C", true, 0, "")
		}
		p.Ln(-1)
		p.SetFont(p.family, "", 8)
	}

	header()
	_, pageHeight := p.GetPageSize()
	for _, row := range t.Rows {
		if p.GetY()+rowHeight > pageHeight-pageMargin {
			p.AddPage()
			if t.RepeatHeader {
				header()
			}
		}
		for i, c := range t.Columns {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			p.CellFormat(widths[i], rowHeight, p.tr(cell), "1", 0, align(c.Align), false, 0, "")
		}
		p.Ln(-1)
	}
	p.Ln(4)
}

func totals(p *page, t soa.Totals) {
	amountWidth := columnWidths[len(columnWidths)-1] * 2
	p.SetFont(p.family, "B", 10)
	p.CellFormat(printableWidth(p)-amountWidth, 8, p.tr(t.Label), "T", 0, "R", false, 0, "")
	p.CellFormat(amountWidth, 8, p.tr(t.Amount), "T", 1, "R", false, 0, "")
	p.Ln(8)
}

func payment(p *page, b soa.PaymentInstructions) {
	if b.Heading != "" {
		p.SetFont(p.family, "B", 10)
		p.CellFormat(printableWidth(p), 6, p.tr(b.Heading), "", 1, "L", false, 0, "")
	}
	p.SetFont(p.family, "", 9)
	for _, line := range b.Lines {
		p.CellFormat(printableWidth(p), 5, p.tr(line), "", 1, "L", false, 0, "")
	}
}

func printableWidth(p *page) float64 {
	width, _ := p.GetPageSize()
	left, _, right, _ := p.GetMargins()
	return width - left - right
}

// scaledWidths returns n column widths that fill the printable width.
func scaledWidths(p *page, n int) []float64 {
	if n == len(columnWidths) {
		return columnWidths
	}
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = printableWidth(p) / float64(n)
	}
	return widths
}

func align(a soa.Align) string {
	switch a {
	case soa.AlignCenter:
		return "C"
	case soa.AlignRight:
		return "R"
	default:
		return "L"
	}
}

// parseColor decodes #RRGGBB, black when malformed.
func parseColor(hex string) (r, g, b int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || len(hex) != 6 {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}
