package renderer

import (
	"encoding/json"

	"github.com/etnz/soa"
)

// JSON renders the document model itself, indented.
type JSON struct{}

func (JSON) Extension() string { return "json" }

func (JSON) Render(d *soa.Document) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
