package renderer

import (
	"bytes"
	"strings"

	"github.com/etnz/soa"
	md "github.com/nao1215/markdown"
)

// Markdown renders statements as GitHub flavored markdown.
type Markdown struct{}

func (Markdown) Extension() string { return "md" }

func (Markdown) Render(d *soa.Document) ([]byte, error) {
	return []byte(StatementMarkdown(d)), nil
}

// StatementMarkdown returns the markdown text of d.
func StatementMarkdown(d *soa.Document) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	for _, b := range d.Blocks {
		switch b := b.(type) {
		case soa.Banner:
			if b.Mark != "" {
				doc.PlainText(md.Bold(escape(b.Mark)))
				doc.PlainText("")
			}
			doc.H1(escape(b.Title))

		case soa.Addressing:
			var lines []string
			if b.Recipient != "" {
				lines = append(lines, strings.TrimSpace(escape(b.Label)+" "+md.Bold(escape(b.Recipient))))
			}
			for _, l := range []string{b.AsOf, b.Subsidiary} {
				if l != "" {
					lines = append(lines, escape(l))
				}
			}
			// two trailing spaces are a hard line break
			doc.PlainText(strings.Join(lines, "  \n"))
			doc.PlainText("")

		case soa.Table:
			table := md.TableSet{
				Alignment: make([]md.TableAlignment, len(b.Columns)),
				Header:    make([]string, len(b.Columns)),
				Rows:      make([][]string, 0, len(b.Rows)),
			}
			for i, c := range b.Columns {
				table.Alignment[i] = alignment(c.Align)
				table.Header[i] = escape(c.Label)
			}
			for _, row := range b.Rows {
				cells := make([]string, len(row))
				for i, cell := range row {
					cells[i] = escape(cell)
				}
				table.Rows = append(table.Rows, cells)
			}
			doc.Table(table)
			doc.PlainText("")

		case soa.Totals:
			doc.PlainText(md.Bold(escape(b.Label) + ": " + b.Amount))
			doc.PlainText("")

		case soa.PaymentInstructions:
			if b.Heading != "" {
				doc.H2(escape(b.Heading))
			}
			if len(b.Lines) > 0 {
				lines := make([]string, len(b.Lines))
				for i, l := range b.Lines {
					lines[i] = escape(l)
				}
				doc.BulletList(lines...)
			}
		}
	}
	return doc.String()
}

func alignment(a soa.Align) md.TableAlignment {
	switch a {
	case soa.AlignCenter:
		return md.AlignCenter
	case soa.AlignRight:
		return md.AlignRight
	default:
		return md.AlignLeft
	}
}

// escaper neutralizes the markdown characters that ledger text can contain.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"<", `\<`,
	">", `\>`,
	"\n", " ",
)

func escape(s string) string { return escaper.Replace(s) }
