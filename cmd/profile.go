package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/soa"
	"github.com/google/subcommands"
)

type profileCmd struct {
	profile string
	list    bool
}

func (*profileCmd) Name() string     { return "profile" }
func (*profileCmd) Synopsis() string { return "prints a layout profile" }
func (*profileCmd) Usage() string {
	return `soa profile [-profile <name|file>] [-list]

  Prints a layout profile as YAML, a good start for a custom profile.

  See 'soa topic profiles'.
`
}

func (c *profileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.profile, "profile", "", "Built-in profile name or YAML profile file. Defaults to SOA_PROFILE.")
	f.BoolVar(&c.list, "list", false, "List the built-in profiles")
}

func (c *profileCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		for _, name := range soa.ProfileNames() {
			fmt.Fprintln(stdout, name)
		}
		return subcommands.ExitSuccess
	}

	name := c.profile
	if name == "" {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			return subcommands.ExitFailure
		}
		name = cfg.Profile
	}
	p, err := soa.LoadProfile(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := p.Encode(stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
