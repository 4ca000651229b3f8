package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/soa"
	"github.com/etnz/soa/logger"
	"github.com/etnz/soa/renderer"
	"github.com/google/subcommands"
)

// generateCmd renders the statement of every merchant of a ledger into a bundle.
type generateCmd struct {
	ledgerFlags
	runFlags
	output  string
	format  string
	workers int
}

func (*generateCmd) Name() string { return "generate" }

func (*generateCmd) Synopsis() string { return "generates the statements of account of a ledger" }

func (*generateCmd) Usage() string {
	return `soa generate [-o <output>] [-format <format>] [-map field=column]... [-guess] <ledger>

  Generates one statement of account per merchant of the ledger and writes them
  into a bundle.

  The output is a ZIP file when it ends with .zip, a bucket object when it
  starts with gs://, and a directory otherwise.
`
}

func (c *generateCmd) SetFlags(f *flag.FlagSet) {
	c.ledgerFlags.SetFlags(f)
	c.runFlags.SetFlags(f)
	f.StringVar(&c.output, "o", "", "Output ZIP file, directory or gs:// URI. Defaults to SOA_OUTPUT.")
	f.StringVar(&c.format, "format", "", fmt.Sprintf("Document format %q. Defaults to SOA_FORMAT.", renderer.Formats))
	f.IntVar(&c.workers, "workers", 0, "Number of statements rendered concurrently. Defaults to SOA_WORKERS.")
}

func (c *generateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	ctx = logger.WithContext(ctx, log)

	opts, err := c.options(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.workers > 0 {
		opts.Workers = c.workers
	}
	output, format := c.output, c.format
	if output == "" {
		output = cfg.Output
	}
	if format == "" {
		format = cfg.Format
	}

	r, err := renderer.New(format, renderer.Options{Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	pk, err := packager(output, opts.AsOf.Time())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	l, m, p, err := c.load(cfg, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	log.Info().Str("ledger", path).Int("records", l.Len()).Str("profile", p.Name).Str("as_of", opts.AsOf.String()).Msg("generating statements")

	b, err := soa.Generate(ctx, l, m, p, opts, r, pk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	logger.Warnings(log, b.Warnings)

	fmt.Fprintf(stdout, "Generated %d statements into %s (%d warnings)\n", len(b.Entries), output, len(b.Warnings))
	return subcommands.ExitSuccess
}
