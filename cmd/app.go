// Package cmd implements the CLI application to generate statements of account.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/soa"
	"github.com/etnz/soa/bundle"
	"github.com/etnz/soa/config"
	"github.com/etnz/soa/date"
	"github.com/etnz/soa/logger"
	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Commands lists every subcommand with its group, in help order.
var Commands = []struct {
	Command subcommands.Command
	Group   string
}{
	{&generateCmd{}, "statements"},
	{&previewCmd{}, "statements"},
	{&mappingCmd{}, "mapping"},
	{&suggestCmd{}, "mapping"},
	{&assistCmd{}, "mapping"},
	{&profileCmd{}, "profiles"},
	{&serveCmd{}, "server"},
	{&topicCmd{}, "help"},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, e := range Commands {
		c.Register(e.Command, e.Group)
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var envFile = flag.String("env-file", ".env", "Path to the .env file with SOA_* settings")
var logLevel = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides SOA_LOG_LEVEL")

// stdout receives the command output, logs go to stderr.
var stdout io.Writer = os.Stdout

// loadConfig reads the settings of the app.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return nil, err
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	return cfg, nil
}

// newLogger returns the logger of a run, tagged with a fresh run id.
func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), err
	}
	return logger.WithRun(logger.New().Level(level), uuid.NewString()), nil
}

// printMarkdown renders md for the terminal, and falls back to the raw text.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(stdout, out)
			return
		}
	}
	fmt.Fprint(stdout, md)
}

// bindingsFlag collects repeated -map field=column flags.
type bindingsFlag map[soa.Field]string

func (b bindingsFlag) String() string {
	var parts []string
	for _, f := range soa.Fields {
		if col, ok := b[f]; ok {
			parts = append(parts, string(f)+"="+col)
		}
	}
	return strings.Join(parts, ",")
}

func (b bindingsFlag) Set(s string) error {
	f, col, err := soa.ParseBinding(s)
	if err != nil {
		return err
	}
	b[f] = col
	return nil
}

// ledgerFlags are the flags of the commands reading a ledger.
type ledgerFlags struct {
	profile  string
	mapping  string
	bindings bindingsFlag
	guess    bool
}

func (c *ledgerFlags) SetFlags(f *flag.FlagSet) {
	c.bindings = make(bindingsFlag)
	f.StringVar(&c.profile, "profile", "", "Built-in profile name or YAML profile file. Defaults to SOA_PROFILE.")
	f.StringVar(&c.mapping, "mapping", "", "YAML column mapping file. Defaults to SOA_MAPPING.")
	f.Var(c.bindings, "map", "Column binding as field=column, can be repeated. Overrides the mapping file, an empty column unbinds the field.")
	f.BoolVar(&c.guess, "guess", false, "Bind the required fields left unbound from the ledger column names")
}

// explicitMapping returns the mapping file overridden by the -map flags.
func (c *ledgerFlags) explicitMapping(cfg *config.Config) (soa.ColumnMapping, error) {
	path := c.mapping
	if path == "" {
		path = cfg.Mapping
	}
	var m soa.ColumnMapping
	if path != "" {
		var err error
		if m, err = soa.LoadMapping(path); err != nil {
			return soa.ColumnMapping{}, fmt.Errorf("mapping %q: %w", path, err)
		}
	}
	for f, col := range c.bindings {
		m = m.With(f, col)
	}
	return m, nil
}

// load reads the ledger at path and resolves its effective mapping and the profile.
func (c *ledgerFlags) load(cfg *config.Config, path string) (*soa.Ledger, soa.ColumnMapping, *soa.LayoutProfile, error) {
	name := c.profile
	if name == "" {
		name = cfg.Profile
	}
	p, err := soa.LoadProfile(name)
	if err != nil {
		return nil, soa.ColumnMapping{}, nil, err
	}
	explicit, err := c.explicitMapping(cfg)
	if err != nil {
		return nil, soa.ColumnMapping{}, nil, err
	}
	l, err := soa.OpenLedger(path, explicit)
	if err != nil {
		return nil, soa.ColumnMapping{}, nil, fmt.Errorf("ledger %q: %w", path, err)
	}
	return l, l.EffectiveMapping(explicit, c.guess), p, nil
}

// ledgerArg returns the single ledger argument of a command.
func ledgerArg(f *flag.FlagSet) (string, error) {
	switch f.NArg() {
	case 0:
		return "", errors.New("missing ledger file")
	case 1:
		return f.Arg(0), nil
	default:
		return "", fmt.Errorf("expected one ledger file, got %d arguments", f.NArg())
	}
}

// runFlags are the per run statement parameters.
type runFlags struct {
	subsidiary string
	asOf       string
	merchants  string
}

func (c *runFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.subsidiary, "subsidiary", "", "Subsidiary printed on every statement. Defaults to SOA_SUBSIDIARY.")
	f.StringVar(&c.asOf, "as-of", "", "Statement date. Defaults to SOA_AS_OF, or the end of the previous month.")
	f.StringVar(&c.merchants, "merchants", "", "Comma separated merchants that get a statement even without rows.")
}

// options returns the batch options of cfg overridden by the flags.
func (c *runFlags) options(cfg *config.Config) (soa.Options, error) {
	opts := soa.Options{
		AsOf:       cfg.AsOf,
		Subsidiary: cfg.Subsidiary,
		Workers:    cfg.Workers,
	}
	if c.subsidiary != "" {
		opts.Subsidiary = c.subsidiary
	}
	if c.asOf != "" {
		on, err := date.ParseAny(c.asOf, config.AsOfLayouts...)
		if err != nil {
			return opts, fmt.Errorf("parsing -as-of: %w", err)
		}
		opts.AsOf = on
	}
	for _, m := range strings.Split(c.merchants, ",") {
		if m = strings.TrimSpace(m); m != "" {
			opts.Merchants = append(opts.Merchants, m)
		}
	}
	return opts, nil
}

// packager returns the destination of the bundle: a gs:// URI, a .zip file,
// or a directory for any other path.
func packager(output string, modified time.Time) (bundle.Packager, error) {
	switch {
	case strings.HasPrefix(output, "gs://"):
		bucket, object, err := bundle.ParseGCSURI(output)
		if err != nil {
			return nil, err
		}
		return &bundle.GCS{Bucket: bucket, Object: object, Modified: modified}, nil
	case strings.EqualFold(filepath.Ext(output), ".zip"):
		return &bundle.Zip{Path: output, Modified: modified}, nil
	default:
		return &bundle.Directory{Path: output}, nil
	}
}
