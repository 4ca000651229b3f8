package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/soa/agent"
	"github.com/google/subcommands"
)

// assistCmd is the subcommand for the mapping assistant.
type assistCmd struct {
	ledgerFlags
	model string
}

func (*assistCmd) Name() string { return "assist" }

func (*assistCmd) Synopsis() string { return "chat with the AI assistant about a ledger mapping" }

func (*assistCmd) Usage() string {
	return `soa assist <ledger> [question]...

  Start an interactive session with the AI assistant to map the columns of the
  ledger. Needs GEMINI_API_KEY.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	c.ledgerFlags.SetFlags(f)
	f.StringVar(&c.model, "model", "", "Gemini model. Defaults to SOA_GEMINI_MODEL.")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: missing ledger file")
		return subcommands.ExitUsageError
	}
	initialPrompt := strings.Join(f.Args()[1:], " ")

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	l, _, p, err := c.load(cfg, f.Arg(0))
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

	a := agent.New(stdout, os.Stdin, agent.NewMappingExpert(l, p, model))
	if err := a.Run(ctx, client, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
