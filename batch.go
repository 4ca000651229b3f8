package soa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/soa/bundle"
	"github.com/etnz/soa/date"
	"golang.org/x/sync/errgroup"
)

// ErrNameCollision is returned when two merchants get the same file name and
// the profile rejects collisions.
var ErrNameCollision = errors.New("file name collision")

// DefaultPrefix is the file name prefix of statements.
const DefaultPrefix = "SOA_"

// Renderer turns a Document into the bytes of one file.
//
// Render must be deterministic for a given document, and safe for concurrent
// use when a batch runs with several workers.
type Renderer interface {
	Render(doc *Document) ([]byte, error)
	// Extension is the file extension of rendered documents, without the dot.
	Extension() string
}

// warningRenderer is implemented by renderers that degrade gracefully and
// report what they could not do.
type warningRenderer interface {
	Warnings() []Warning
}

// Options are the per run parameters of a batch.
type Options struct {
	AsOf       date.Date
	Subsidiary string
	// Merchants get a statement even when the ledger has no row for them.
	// It is only rendered when the profile emits empty statements.
	Merchants []string
	// Workers is the number of documents rendered concurrently, 0 or 1 renders sequentially.
	Workers int
}

// Entry is one statement of a batch, ready to be rendered.
type Entry struct {
	Name     string // file name without extension
	Merchant string
	Document *Document
}

// Batch is the result of a run: one entry per merchant, in discovery order.
type Batch struct {
	Entries  []Entry
	Warnings []Warning
	Profile  *LayoutProfile

	workers int
}

var unsafeName = strings.NewReplacer("/", "_", "\\", "_")

// SafeName returns the default file name of a merchant statement.
func SafeName(merchant string) string {
	return fileName(DefaultPrefix, merchant)
}

func fileName(prefix, merchant string) string {
	return prefix + unsafeName.Replace(merchant)
}

// Run validates the mapping, then computes and composes the statement of every merchant in l.
//
// A *MappingError is returned before any record is processed. Data issues
// never fail the run, they are collected in Batch.Warnings.
func Run(l *Ledger, m ColumnMapping, p *LayoutProfile, opts Options) (*Batch, error) {
	if p == nil {
		p = DefaultProfile()
	}
	if err := m.Validate(p.RequiredFields(), l.Header); err != nil {
		return nil, err
	}

	rows, warnings := ProjectAll(l, m, p)
	statements, w := Compute(rows, ComputeOptions{
		AsOf:             opts.AsOf,
		Subsidiary:       opts.Subsidiary,
		BalanceMode:      p.BalanceMode,
		SuppliedDocument: m.Has(FieldDocumentAmount),
		SuppliedBalance:  m.Has(FieldAccumulatedBalance),
		Merchants:        opts.Merchants,
	})
	warnings = append(warnings, w...)

	b := &Batch{
		Entries:  make([]Entry, 0, len(statements)),
		Warnings: warnings,
		Profile:  p,
		workers:  opts.Workers,
	}
	names := make(map[string]string) // file name -> merchant
	for _, s := range statements {
		if len(s.Rows) == 0 && !p.EmitEmpty {
			continue
		}
		name, err := b.uniqueName(names, p, s.Merchant)
		if err != nil {
			return nil, err
		}
		names[name] = s.Merchant
		b.Entries = append(b.Entries, Entry{
			Name:     name,
			Merchant: s.Merchant,
			Document: Compose(s, p),
		})
	}
	return b, nil
}

// uniqueName applies the collision policy of p to the file name of merchant.
func (b *Batch) uniqueName(names map[string]string, p *LayoutProfile, merchant string) (string, error) {
	base := fileName(p.FilePrefix, merchant)
	other, taken := names[base]
	if !taken {
		return base, nil
	}
	if p.Collision == CollisionReject {
		return "", fmt.Errorf("%w: merchants %q and %q are both named %q", ErrNameCollision, other, merchant, base)
	}
	name := base
	for i := 2; taken; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
		_, taken = names[name]
	}
	b.Warnings = append(b.Warnings, Warning{
		Kind:     NameCollision,
		Merchant: merchant,
		Value:    base,
		Message:  fmt.Sprintf("%q is already used by merchant %q, renamed to %q", base, other, name),
	})
	return name, nil
}

// Render renders every entry with r and returns the files in entry order.
//
// The first render error fails the whole batch.
func (b *Batch) Render(ctx context.Context, r Renderer) ([]bundle.File, error) {
	files := make([]bundle.File, len(b.Entries))
	render := func(i int) error {
		e := b.Entries[i]
		data, err := r.Render(e.Document)
		if err != nil {
			return fmt.Errorf("cannot render statement of %q: %w", e.Merchant, err)
		}
		files[i] = bundle.File{Name: e.Name + "." + r.Extension(), Data: data}
		return nil
	}

	if b.workers <= 1 {
		for i := range b.Entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := render(i); err != nil {
				return nil, err
			}
		}
	} else {
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(b.workers)
		for i := range b.Entries {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				return render(i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	if wr, ok := r.(warningRenderer); ok {
		b.Warnings = append(b.Warnings, wr.Warnings()...)
	}
	return files, nil
}

// Generate runs a batch, renders it and packs the files.
//
// Nothing is packed unless every statement rendered.
func Generate(ctx context.Context, l *Ledger, m ColumnMapping, p *LayoutProfile, opts Options, r Renderer, pk bundle.Packager) (*Batch, error) {
	b, err := Run(l, m, p, opts)
	if err != nil {
		return nil, err
	}
	files, err := b.Render(ctx, r)
	if err != nil {
		return b, err
	}
	if err := pk.Pack(ctx, files); err != nil {
		return b, fmt.Errorf("cannot pack statements: %w", err)
	}
	return b, nil
}
