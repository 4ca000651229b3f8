package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/etnz/soa"
	"github.com/etnz/soa/logger"
	"github.com/etnz/soa/renderer"
	"github.com/google/subcommands"
)

// previewCmd shows the statement of one merchant in the terminal.
type previewCmd struct {
	ledgerFlags
	runFlags
	merchant string
	raw      bool
}

func (*previewCmd) Name() string { return "preview" }

func (*previewCmd) Synopsis() string { return "shows the statement of one merchant" }

func (*previewCmd) Usage() string {
	return `soa preview -merchant <merchant> [-raw] <ledger>

  Shows the statement of account of a merchant as it will be generated.
`
}

func (c *previewCmd) SetFlags(f *flag.FlagSet) {
	c.ledgerFlags.SetFlags(f)
	c.runFlags.SetFlags(f)
	f.StringVar(&c.merchant, "merchant", "", "Merchant to preview")
	f.BoolVar(&c.raw, "raw", false, "Print the markdown source instead of rendering it")
}

func (c *previewCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path, err := ledgerArg(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.merchant == "" {
		fmt.Fprintln(os.Stderr, "Error: -merchant is required")
		return subcommands.ExitUsageError
	}
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	opts, err := c.options(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	l, m, p, err := c.load(cfg, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	// The merchant is previewed even without any row.
	opts.Merchants = append(opts.Merchants, c.merchant)
	preview := *p
	preview.EmitEmpty = true

	b, err := soa.Run(l, m, &preview, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	i := slices.IndexFunc(b.Entries, func(e soa.Entry) bool { return e.Merchant == c.merchant })
	if i < 0 {
		fmt.Fprintf(os.Stderr, "Error: no statement for merchant %q\n", c.merchant)
		return subcommands.ExitFailure
	}
	for _, w := range b.Warnings {
		if w.Merchant == c.merchant || w.Merchant == "" {
			logger.Warnings(log, []soa.Warning{w})
		}
	}

	md := renderer.StatementMarkdown(b.Entries[i].Document)
	if c.raw {
		fmt.Fprint(stdout, md)
	} else {
		printMarkdown(md)
	}
	return subcommands.ExitSuccess
}
