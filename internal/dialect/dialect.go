// Package dialect turns diff changes into SQL statements. Each dialect renders
// one change into exactly one statement, so the order of the statements is the
// order of the changes.
package dialect

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"schemadrift/internal/core"
	"schemadrift/internal/diff"
)

type Type string

const (
	MySQL Type = "mysql"
)

// QuoteMode controls when identifiers are wrapped in quotes.
type QuoteMode string

const (
	// QuoteAsNeeded quotes reserved words and identifiers that are not plain
	// letters, digits and underscores.
	QuoteAsNeeded QuoteMode = "as-needed"
	// QuoteAlways quotes every identifier.
	QuoteAlways QuoteMode = "always"
)

// ErrInvalidChange is returned for changes that lack the data their kind needs.
var ErrInvalidChange = errors.New("invalid change")

// RenderOptions tune statement rendering.
type RenderOptions struct {
	Quote QuoteMode
	// Placement appends FIRST / AFTER <column> to added columns.
	Placement bool
}

// DefaultRenderOptions quotes as needed and leaves column placement to the server.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{Quote: QuoteAsNeeded}
}

// Dialect renders changes and tables for one SQL flavor. Implementations are
// stateless apart from their options and safe for concurrent use.
type Dialect interface {
	Name() Type
	// Render returns the statement that applies ch, terminated by a semicolon.
	Render(ch *diff.Change) (string, error)
	// CreateTable returns the CREATE TABLE statement for t.
	CreateTable(t *core.Table) (string, error)
	// AddKey returns an ALTER TABLE statement adding a captured key or constraint.
	AddKey(table string, idx *core.Index) string
	QuoteIdentifier(name string) string
	QuoteString(value string) string
}

var (
	mu       sync.RWMutex
	registry = map[Type]func(RenderOptions) Dialect{}
)

// Register makes a dialect available under name. Dialect packages call it from init.
func Register(name Type, ctor func(RenderOptions) Dialect) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// New returns the named dialect configured with opts.
func New(name Type, opts RenderOptions) (Dialect, error) {
	if opts.Quote == "" {
		opts.Quote = QuoteAsNeeded
	}
	if opts.Quote != QuoteAsNeeded && opts.Quote != QuoteAlways {
		return nil, fmt.Errorf("unsupported quote mode %q", opts.Quote)
	}

	mu.RLock()
	ctor, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q (available: %v)", name, Types())
	}
	return ctor(opts), nil
}

// Types lists the registered dialects in sorted order.
func Types() []Type {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Type, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// RenderAll renders every change in order.
func RenderAll(d Dialect, changes []*diff.Change) ([]string, error) {
	out := make([]string, 0, len(changes))
	for _, ch := range changes {
		stmt, err := d.Render(ch)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", ch, err)
		}
		out = append(out, stmt)
	}
	return out, nil
}

// Rollback renders the statement that undoes ch.
func Rollback(d Dialect, ch *diff.Change) (string, error) {
	if err := ch.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidChange, err)
	}
	return d.Render(ch.Inverse())
}
