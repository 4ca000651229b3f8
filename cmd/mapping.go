package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/soa"
	"github.com/google/subcommands"
	"gopkg.in/yaml.v3"
)

// mappingCmd shows how the columns of a ledger are bound and checks the binding.
type mappingCmd struct {
	ledgerFlags
	write string
}

func (*mappingCmd) Name() string { return "mapping" }

func (*mappingCmd) Synopsis() string { return "shows and validates the column mapping of a ledger" }

func (*mappingCmd) Usage() string {
	return `soa mapping [-mapping <file>] [-map field=column]... [-guess] [-w <file>] <ledger>

  Shows the ledger columns and the effective mapping: the mapping file
  overridden by the -map flags. With -guess, the required fields still
  unbound are guessed from the column names. The mapping is then validated
  against the profile.

  See 'soa topic mapping'.
`
}

func (c *mappingCmd) SetFlags(f *flag.FlagSet) {
	c.ledgerFlags.SetFlags(f)
	f.StringVar(&c.write, "w", "", "Write the effective mapping to this YAML file")
}

func (c *mappingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	l, m, p, err := c.load(cfg, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.write != "" {
		if err := os.WriteFile(c.write, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing mapping: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	verr := m.Validate(p.RequiredFields(), l.Header)
	printMarkdown(mappingMarkdown(l, m, p, string(data), verr))
	if verr != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// mappingMarkdown reports the columns of l and how m binds them.
func mappingMarkdown(l *soa.Ledger, m soa.ColumnMapping, p *soa.LayoutProfile, yamlMapping string, verr error) string {
	var b strings.Builder
	b.WriteString("# Column mapping\n\n")
	if l.Header != nil {
		fmt.Fprintf(&b, "Ledger columns (%d records):\n\n", l.Len())
		for _, h := range l.Header {
			fmt.Fprintf(&b, "* `%s`\n", h)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Effective mapping for profile `%s`:\n\n```yaml\n%s```\n\n", p.Name, yamlMapping)
	if verr != nil {
		fmt.Fprintf(&b, "**Invalid**: %v\n", verr)
	} else {
		b.WriteString("**Valid**\n")
	}
	return b.String()
}
