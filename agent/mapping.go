package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/soa"
	"github.com/etnz/soa/docs"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// sampleSize is the number of ledger rows shown to the model.
const sampleSize = 5

// ErrNotTabular is returned for ledgers without a header, their columns cannot be listed.
var ErrNotTabular = errors.New("mapping suggestions need a ledger with a header row")

// NewMappingExpert returns an expert that helps map the columns of l for profile p.
//
// It can read a sample of the ledger and check a mapping before proposing it.
func NewMappingExpert(l *soa.Ledger, p *soa.LayoutProfile, model string) *Expert {
	if model == "" {
		model = DefaultModel
	}
	lib := []Function{LedgerSample(l), ValidateMapping(l, p)}
	return &Expert{
		Name:        "MappingExpert",
		Description: "Maps the columns of an accounting ledger to the fields of a statement of account.",
		ModelName:   model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instructions(p)}}},
		},
		Library: NewLibrary(lib),
	}
}

func instructions(p *soa.LayoutProfile) string {
	topic, err := docs.GetTopic("mapping")
	if err != nil {
		topic = ""
	}
	return fmt.Sprintf(`You help an accountant turn a ledger into statements of account, one per merchant.
Your job is to bind the ledger columns to the statement fields.

Use the tools to read a sample of the ledger and to check a mapping before proposing it.
Required fields for this batch: %s.
Answer with the mapping as YAML "field: column" pairs, and explain any doubt briefly.

%s`, fieldList(p.RequiredFields()), topic)
}

func fieldList(fields []soa.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// LedgerSample is the function returning the header and the first rows of l.
func LedgerSample(l *soa.Ledger) Function {
	const name = "ledger_sample"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        name,
			Description: "Returns the column names of the ledger and its first rows, as JSON.",
			Parameters:  &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A JSON object with the columns and the rows of the sample.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			sample, err := sampleJSON(l)
			if err != nil {
				return errorResponse(id, name, err)
			}
			return outputResponse(id, name, sample)
		},
	}
}

// ValidateMapping is the function checking a mapping against l and p.
func ValidateMapping(l *soa.Ledger, p *soa.LayoutProfile) Function {
	const name = "validate_mapping"
	properties := make(map[string]*genai.Schema, len(soa.Fields))
	for _, f := range soa.Fields {
		properties[string(f)] = &genai.Schema{Type: genai.TypeString, Description: "Ledger column bound to " + string(f)}
	}
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        name,
			Description: "Checks that a mapping binds every required field to an existing ledger column.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"mapping": {Type: genai.TypeObject, Properties: properties},
				},
				Required: []string{"mapping"},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: `"ok" or the list of problems.`,
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			raw, ok := args["mapping"].(map[string]any)
			if !ok {
				return errorResponse(id, name, fmt.Errorf("argument 'mapping' is not an object but %T", args["mapping"]))
			}
			m, err := mappingFrom(raw, nil)
			if err != nil {
				return errorResponse(id, name, err)
			}
			if err := m.Validate(p.RequiredFields(), l.Header); err != nil {
				return outputResponse(id, name, err.Error())
			}
			return outputResponse(id, name, "ok")
		},
	}
}

// Prompt returns the one shot request for a mapping of l.
func Prompt(l *soa.Ledger, p *soa.LayoutProfile) (string, error) {
	sample, err := sampleJSON(l)
	if err != nil {
		return "", err
	}
	fields := make([]string, len(soa.Fields))
	for i, f := range soa.Fields {
		fields[i] = `"` + string(f) + `"`
	}
	return fmt.Sprintf(`You map the columns of an accounting ledger to the fields of a statement of account.

Fields: %s.
Required fields: %s.
document_amount and accumulated_balance are computed when unbound, only bind them to a column that really holds them.

Ledger sample:
%s

Output STRICT JSON only: one object whose keys are fields and whose values are column names copied exactly from the sample.
Omit the fields that no column holds.
Do NOT wrap the response in code fences.
`, strings.Join(fields, ", "), fieldList(p.RequiredFields()), sample), nil
}

// Suggest asks the model for a mapping of l in one request.
func Suggest(ctx context.Context, client *genai.Client, model string, l *soa.Ledger, p *soa.LayoutProfile) (soa.ColumnMapping, error) {
	if model == "" {
		model = DefaultModel
	}
	prompt, err := Prompt(l, p)
	if err != nil {
		return soa.ColumnMapping{}, err
	}
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return soa.ColumnMapping{}, fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return soa.ColumnMapping{}, fmt.Errorf("empty response from model")
	}
	return ParseSuggestion(text, l.Header)
}

// ParseSuggestion reads the JSON object answered by the model.
//
// Unknown fields, empty values and columns absent from header are dropped.
func ParseSuggestion(text string, header []string) (soa.ColumnMapping, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(cleanModelJSON(text)), &raw); err != nil {
		return soa.ColumnMapping{}, fmt.Errorf("unmarshal model JSON: %w\nraw response: %s", err, text)
	}
	return mappingFrom(raw, header)
}

// mappingFrom converts a decoded JSON object into a mapping. Unknown fields
// are an error unless header is set, in which case they are dropped.
func mappingFrom(raw map[string]any, header []string) (soa.ColumnMapping, error) {
	columns := make(map[soa.Field]string)
	for key, v := range raw {
		f, err := soa.ParseField(key)
		if err != nil {
			if header != nil {
				continue
			}
			return soa.ColumnMapping{}, err
		}
		col, _ := v.(string)
		if header != nil && !slices.Contains(header, col) {
			continue
		}
		columns[f] = col
	}
	return soa.NewColumnMapping(columns), nil
}

// sampleJSON returns the header and the first rows of l as a JSON object.
func sampleJSON(l *soa.Ledger) (string, error) {
	if l.Header == nil {
		return "", ErrNotTabular
	}
	sample := struct {
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
	}{Columns: l.Header, Rows: [][]string{}}
	for _, rec := range l.Sample(sampleSize) {
		row := make([]string, len(l.Header))
		for i, col := range l.Header {
			row[i] = rec.Get(col)
		}
		sample.Rows = append(sample.Rows, row)
	}
	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// cleanModelJSON removes the markdown fences and the text around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
