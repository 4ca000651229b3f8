package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/soa/agent"
	"github.com/etnz/soa/config"
	"github.com/google/subcommands"
	"google.golang.org/genai"
	"gopkg.in/yaml.v3"
)

// suggestCmd asks Gemini to map the columns of a ledger.
type suggestCmd struct {
	ledgerFlags
	model  string
	output string
}

func (*suggestCmd) Name() string { return "suggest" }

func (*suggestCmd) Synopsis() string { return "asks Gemini for the column mapping of a ledger" }

func (*suggestCmd) Usage() string {
	return `soa suggest [-model <model>] [-o <file>] <ledger>

  Sends the ledger columns and a few rows to Gemini and prints the proposed
  mapping as YAML. Needs GEMINI_API_KEY.
`
}

func (c *suggestCmd) SetFlags(f *flag.FlagSet) {
	c.ledgerFlags.SetFlags(f)
	f.StringVar(&c.model, "model", "", "Gemini model. Defaults to SOA_GEMINI_MODEL.")
	f.StringVar(&c.output, "o", "", "Write the mapping to this YAML file instead of stdout")
}

func (c *suggestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, err := ledgerArg(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	l, _, p, err := c.load(cfg, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	model := c.model
	if model == "" {
		model = cfg.GeminiModel
	}

	client, err := newGenaiClient(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}
	m, err := agent.Suggest(ctx, client, model, l, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := m.Validate(p.RequiredFields(), l.Header); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: the suggestion is incomplete: %v\n", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.output == "" {
		fmt.Fprint(stdout, string(data))
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(c.output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing mapping: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Mapping written to %s\n", c.output)
	return subcommands.ExitSuccess
}

// newGenaiClient returns a Gemini client, the key comes from the configuration or the environment.
func newGenaiClient(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	if cfg.GeminiAPIKey == "" {
		return genai.NewClient(ctx, nil)
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
}
