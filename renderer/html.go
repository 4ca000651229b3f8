package renderer

import (
	"bytes"
	"fmt"
	"html"

	"github.com/etnz/soa"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// HTML renders statements as standalone HTML pages.
//
// The page body is the markdown rendition converted by goldmark, styled with
// the brand color of the banner.
type HTML struct{}

func (HTML) Extension() string { return "html" }

var converter = goldmark.New(goldmark.WithExtensions(extension.GFM))

func (HTML) Render(d *soa.Document) ([]byte, error) {
	var body bytes.Buffer
	if err := converter.Convert([]byte(StatementMarkdown(d)), &body); err != nil {
		return nil, fmt.Errorf("cannot convert statement to HTML: %w", err)
	}

	color := "#000000"
	if b, ok := d.Banner(); ok && b.Color != "" {
		color = b.Color
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(d.Title+" "+d.Merchant))
	fmt.Fprintf(&buf, "<style>\n%s</style>\n</head>\n<body>\n", fmt.Sprintf(pageStyle, color))
	buf.Write(body.Bytes())
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}

const pageStyle = `body { font-family: Helvetica, Arial, sans-serif; margin: 2em; }
body > p:first-child { background: %s; color: #ffffff; padding: 0.8em; font-size: 1.4em; }
table { border-collapse: collapse; width: 100%%; }
th, td { border: 1px solid #999999; padding: 0.3em 0.5em; }
th { background: #eeeeee; }
`
