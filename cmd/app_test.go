package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/etnz/soa"
	"github.com/etnz/soa/bundle"
	"github.com/etnz/soa/config"
	"github.com/etnz/soa/date"
	"github.com/google/subcommands"
)

const ledgerCSV = `Merchant,Date,Doc Number,Type,Original Amount,Payment Amount
Acme,2026-01-05,INV-1,Invoice,100.00,
Beta Co,2026-01-07,INV-2,Invoice,50.00,20.00
Acme,2026-01-20,PAY-1,Payment,,100.00
`

// setup writes the ledger into a temporary directory, isolates the app from
// any .env file and captures stdout.
func setup(t *testing.T) (dir, ledger string, out *bytes.Buffer) {
	t.Helper()
	dir = t.TempDir()
	ledger = filepath.Join(dir, "ledger.csv")
	if err := os.WriteFile(ledger, []byte(ledgerCSV), 0644); err != nil {
		t.Fatal(err)
	}

	oldEnv, oldOut := *envFile, stdout
	*envFile = filepath.Join(dir, ".env")
	out = &bytes.Buffer{}
	stdout = out
	t.Cleanup(func() {
		*envFile = oldEnv
		stdout = oldOut
	})
	return dir, ledger, out
}

// execute parses args for c and runs it.
func execute(t *testing.T, c subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("cannot parse %q: %v", args, err)
	}
	return c.Execute(context.Background(), f)
}

func TestBindingsFlag(t *testing.T) {
	b := make(bindingsFlag)
	if err := b.Set("merchant=Customer"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := b.Set("date = Doc Date"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if got, want := b.String(), "merchant=Customer,date=Doc Date"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	for _, bad := range []string{"merchant", "vendor=Supplier"} {
		if err := b.Set(bad); err == nil {
			t.Errorf("Set(%q) succeeded, want an error", bad)
		}
	}
}

func TestPackager(t *testing.T) {
	modified := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		output  string
		want    any
		wantErr bool
	}{
		{output: "SOA_PDFs.zip", want: &bundle.Zip{Path: "SOA_PDFs.zip", Modified: modified}},
		{output: "out/Statements.ZIP", want: &bundle.Zip{Path: "out/Statements.ZIP", Modified: modified}},
		{output: "out", want: &bundle.Directory{Path: "out"}},
		{output: "gs://finance/2026/01.zip", want: &bundle.GCS{Bucket: "finance", Object: "2026/01.zip", Modified: modified}},
		{output: "gs://finance", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			got, err := packager(tt.output, modified)
			if (err != nil) != tt.wantErr {
				t.Fatalf("packager() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			switch want := tt.want.(type) {
			case *bundle.Zip:
				if g, ok := got.(*bundle.Zip); !ok || *g != *want {
					t.Errorf("packager() = %#v, want %#v", got, want)
				}
			case *bundle.Directory:
				if g, ok := got.(*bundle.Directory); !ok || *g != *want {
					t.Errorf("packager() = %#v, want %#v", got, want)
				}
			case *bundle.GCS:
				g, ok := got.(*bundle.GCS)
				if !ok || g.Bucket != want.Bucket || g.Object != want.Object || !g.Modified.Equal(want.Modified) {
					t.Errorf("packager() = %#v, want %#v", got, want)
				}
			}
		})
	}
}

func TestRunFlagsOptions(t *testing.T) {
	cfg := &config.Config{AsOf: date.New(2026, 1, 31), Subsidiary: "Head Office", Workers: 2}

	c := &runFlags{}
	opts, err := c.options(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.AsOf != cfg.AsOf || opts.Subsidiary != "Head Office" || opts.Workers != 2 || opts.Merchants != nil {
		t.Errorf("options() = %+v, want the configuration", opts)
	}

	c = &runFlags{subsidiary: "Branch", asOf: "28-Feb-2026", merchants: "Acme, ,Zeta"}
	opts, err = c.options(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.AsOf != date.New(2026, 2, 28) || opts.Subsidiary != "Branch" || !slices.Equal(opts.Merchants, []string{"Acme", "Zeta"}) {
		t.Errorf("options() = %+v, want the flags", opts)
	}

	c = &runFlags{asOf: "end of month"}
	if _, err := c.options(cfg); err == nil {
		t.Error("options() accepted an invalid -as-of")
	}
}

func TestGenerate(t *testing.T) {
	dir, ledger, out := setup(t)
	output := filepath.Join(dir, "SOA_PDFs.zip")

	status := execute(t, &generateCmd{}, "-o", output, "-format", "md", "-as-of", "2026-01-31", "-subsidiary", "Head Office", "-guess", ledger)
	if status != subcommands.ExitSuccess {
		t.Fatalf("generate = %v, want ExitSuccess", status)
	}
	if !strings.Contains(out.String(), "Generated 2 statements") {
		t.Errorf("generate output = %q", out.String())
	}

	zr, err := zip.OpenReader(output)
	if err != nil {
		t.Fatalf("cannot open bundle: %v", err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if want := []string{"SOA_Acme.md", "SOA_Beta Co.md"}; !slices.Equal(names, want) {
		t.Errorf("bundle entries = %q, want %q", names, want)
	}
}

func TestGenerateDirectory(t *testing.T) {
	dir, ledger, _ := setup(t)
	output := filepath.Join(dir, "statements")

	status := execute(t, &generateCmd{}, "-o", output, "-format", "json", "-workers", "2", "-guess", ledger)
	if status != subcommands.ExitSuccess {
		t.Fatalf("generate = %v, want ExitSuccess", status)
	}
	for _, name := range []string{"SOA_Acme.json", "SOA_Beta Co.json"} {
		if _, err := os.Stat(filepath.Join(output, name)); err != nil {
			t.Errorf("statement not written: %v", err)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name string
		args func(dir, ledger string) []string
		want subcommands.ExitStatus
	}{
		{"no ledger", func(dir, ledger string) []string { return nil }, subcommands.ExitUsageError},
		{"unknown format", func(dir, ledger string) []string { return []string{"-format", "docx", ledger} }, subcommands.ExitUsageError},
		{"missing ledger", func(dir, ledger string) []string { return []string{filepath.Join(dir, "nope.csv")} }, subcommands.ExitFailure},
		{"unknown column", func(dir, ledger string) []string { return []string{"-map", "type=Kind", ledger} }, subcommands.ExitFailure},
		{"unknown profile", func(dir, ledger string) []string { return []string{"-profile", filepath.Join(dir, "nope.yaml"), ledger} }, subcommands.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, ledger, _ := setup(t)
			output := filepath.Join(dir, "out.zip")
			args := append([]string{"-o", output, "-guess"}, tt.args(dir, ledger)...)

			if got := execute(t, &generateCmd{}, args...); got != tt.want {
				t.Errorf("generate = %v, want %v", got, tt.want)
			}
			if _, err := os.Stat(output); err == nil {
				t.Error("a bundle was written for a failed run")
			}
		})
	}
}

func TestPreview(t *testing.T) {
	_, ledger, out := setup(t)

	if got := execute(t, &previewCmd{}, "-merchant", "Acme", "-raw", "-as-of", "2026-01-31", "-guess", ledger); got != subcommands.ExitSuccess {
		t.Fatalf("preview = %v, want ExitSuccess", got)
	}
	for _, want := range []string{"# STATEMENT OF ACCOUNT", "**Acme**", "INV-1", "PAY-1", "Statement as at 31-Jan-2026"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("preview does not contain %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "INV-2") {
		t.Error("preview shows the rows of another merchant")
	}

	out.Reset()
	if got := execute(t, &previewCmd{}, "-merchant", "Zeta", "-raw", "-guess", ledger); got != subcommands.ExitSuccess {
		t.Fatalf("preview of a merchant without rows = %v, want ExitSuccess", got)
	}
	if !strings.Contains(out.String(), "**Zeta**") {
		t.Errorf("preview does not show the empty statement:\n%s", out.String())
	}

	if got := execute(t, &previewCmd{}, ledger); got != subcommands.ExitUsageError {
		t.Errorf("preview without -merchant = %v, want ExitUsageError", got)
	}
}

func TestMapping(t *testing.T) {
	dir, ledger, _ := setup(t)
	written := filepath.Join(dir, "mapping.yaml")

	if got := execute(t, &mappingCmd{}, ledger); got != subcommands.ExitFailure {
		t.Errorf("mapping without bindings = %v, want ExitFailure", got)
	}

	if got := execute(t, &mappingCmd{}, "-guess", "-w", written, ledger); got != subcommands.ExitSuccess {
		t.Fatalf("mapping -guess = %v, want ExitSuccess", got)
	}
	m, err := soa.LoadMapping(written)
	if err != nil {
		t.Fatalf("cannot read the written mapping: %v", err)
	}
	if col, _ := m.Column(soa.FieldMerchant); col != "Merchant" {
		t.Errorf("written merchant binding = %q, want the guessed column", col)
	}
	if m.Has(soa.FieldDocumentAmount) || m.Has(soa.FieldAccumulatedBalance) {
		t.Errorf("written mapping binds an optional field: %v", m.Columns())
	}

	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"written file", []string{"-mapping", written}, subcommands.ExitSuccess},
		{"override", []string{"-mapping", written, "-map", "type=Doc Number"}, subcommands.ExitSuccess},
		{"unbound", []string{"-mapping", written, "-map", "type="}, subcommands.ExitFailure},
		{"unbound and guessed", []string{"-mapping", written, "-map", "type=", "-guess"}, subcommands.ExitSuccess},
		{"unknown column", []string{"-mapping", written, "-map", "date=Posted"}, subcommands.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := execute(t, &mappingCmd{}, append(tt.args, ledger)...); got != tt.want {
				t.Errorf("mapping %q = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestMappingMarkdown(t *testing.T) {
	l := &soa.Ledger{Header: []string{"Merchant", "Date"}}
	m := soa.NewColumnMapping(map[soa.Field]string{soa.FieldMerchant: "Merchant"})
	p := soa.DefaultProfile()

	got := mappingMarkdown(l, m, p, "merchant: Merchant\n", m.Validate(p.RequiredFields(), l.Header))
	for _, want := range []string{"* `Merchant`", "* `Date`", "```yaml\nmerchant: Merchant\n```", "**Invalid**", "missing binding for date"} {
		if !strings.Contains(got, want) {
			t.Errorf("mappingMarkdown() does not contain %q:\n%s", want, got)
		}
	}
}

func TestProfile(t *testing.T) {
	_, _, out := setup(t)

	if got := execute(t, &profileCmd{}, "-list"); got != subcommands.ExitSuccess {
		t.Fatalf("profile -list = %v", got)
	}
	if !strings.Contains(out.String(), "au\n") {
		t.Errorf("profile -list = %q, want the built-in profile", out.String())
	}

	out.Reset()
	if got := execute(t, &profileCmd{}, "-profile", "au"); got != subcommands.ExitSuccess {
		t.Fatalf("profile = %v", got)
	}
	p, err := soa.DecodeProfile(strings.NewReader(out.String()))
	if err != nil {
		t.Fatalf("printed profile cannot be read back: %v", err)
	}
	if p.Title != soa.DefaultProfile().Title {
		t.Errorf("printed profile title = %q", p.Title)
	}

	if got := execute(t, &profileCmd{}, "-profile", "nope"); got != subcommands.ExitFailure {
		t.Errorf("profile nope = %v, want ExitFailure", got)
	}
}

func TestTopic(t *testing.T) {
	_, _, out := setup(t)
	if got := execute(t, &topicCmd{}, "mapping"); got != subcommands.ExitSuccess {
		t.Fatalf("topic mapping = %v", got)
	}
	if out.Len() == 0 {
		t.Error("topic mapping printed nothing")
	}
	if got := execute(t, &topicCmd{}, "nope"); got != subcommands.ExitFailure {
		t.Errorf("topic nope = %v, want ExitFailure", got)
	}
}

func TestCommands(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range Commands {
		name := e.Command.Name()
		if seen[name] {
			t.Errorf("command %q is registered twice", name)
		}
		seen[name] = true
		if !strings.Contains(e.Command.Usage(), name) {
			t.Errorf("usage of %q does not name the command", name)
		}
	}
}
