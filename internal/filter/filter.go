// Package filter defines the filter model (component B, spec §4.1): a
// closed set of tagged tree-transformation variants, their textual DSL,
// and structural equality/composition. The variant set is intentionally
// closed — a tagged union dispatched by a Kind field — rather than an open
// interface hierarchy, since §9 "Dynamic dispatch over filters" calls for
// structural equality and composition over polymorphism.
package filter

import "strings"

// Kind tags which of the closed set of filter variants a Filter value is.
type Kind int8

const (
	KindNop Kind = iota
	KindEmpty
	KindSubdir
	KindPrefix
	KindGlob
	KindExclude
	KindCompose
	KindWorkspace
)

// Filter is an immutable, structurally-comparable tree transformation.
// Only the fields relevant to Kind are meaningful:
//
//	Nop, Empty:       no fields.
//	Subdir, Prefix:   Path.
//	Glob:             Path holds the glob pattern.
//	Workspace:        Path holds the subtree to read workspace.josh from.
//	Exclude:          Sub[0].
//	Compose:          Sub[0], Sub[1], ... (n-ary).
type Filter struct {
	Kind Kind
	Path string
	Sub  []*Filter
}

// Nop returns the identity filter.
func Nop() *Filter { return &Filter{Kind: KindNop} }

// Empty returns the filter mapping every tree to the empty tree.
func Empty() *Filter { return &Filter{Kind: KindEmpty} }

// Subdir returns a filter that keeps the subtree at path p.
func Subdir(p string) *Filter { return &Filter{Kind: KindSubdir, Path: clean(p)} }

// Prefix returns a filter that wraps the input tree under path p.
func Prefix(p string) *Filter { return &Filter{Kind: KindPrefix, Path: clean(p)} }

// Glob returns a filter keeping only blobs whose path matches pattern.
func Glob(pattern string) *Filter { return &Filter{Kind: KindGlob, Path: pattern} }

// Workspace returns a filter that reads workspace.josh from subtree p of
// the input tree and applies the filter found there.
func Workspace(p string) *Filter { return &Filter{Kind: KindWorkspace, Path: clean(p)} }

// Exclude returns the set-difference of the input against f.
func Exclude(f *Filter) *Filter { return &Filter{Kind: KindExclude, Sub: []*Filter{f}} }

// Compose returns a filter applying f then g. Per the composition law
// (spec §4.1), Nop is eliminated as a left/right identity and Empty
// absorbs the whole composition, flattening nested Composes into a single
// n-ary node so that `compose(compose(a,b),c)` and `compose(a,compose(b,c))`
// produce structurally equal values (associativity modulo tree output).
func Compose(f, g *Filter) *Filter {
	if f.Kind == KindNop {
		return g
	}
	if g.Kind == KindNop {
		return f
	}
	if f.Kind == KindEmpty || g.Kind == KindEmpty {
		return Empty()
	}
	var parts []*Filter
	parts = append(parts, flattenCompose(f)...)
	parts = append(parts, flattenCompose(g)...)
	if len(parts) == 1 {
		return parts[0]
	}
	return &Filter{Kind: KindCompose, Sub: parts}
}

func flattenCompose(f *Filter) []*Filter {
	if f.Kind == KindCompose {
		return f.Sub
	}
	return []*Filter{f}
}

// ComposeAll folds Compose across fs left to right; ComposeAll() is Nop.
func ComposeAll(fs ...*Filter) *Filter {
	out := Nop()
	for _, f := range fs {
		out = Compose(out, f)
	}
	return out
}

// Chain is the spec's alternate serial composition operator (§9 "Chain vs
// Compose"). The spec flags this as an observed ambiguity rather than a
// resolved distinction: no example or test forces different identity
// handling from Compose, so Chain is not a distinct representation at
// all — it builds the same Compose node Compose itself would, which
// keeps Spec/Parse round-tripping for values built through either
// constructor.
func Chain(f, g *Filter) *Filter {
	return Compose(f, g)
}

func clean(p string) string {
	return strings.Trim(p, "/")
}

// Equal reports structural equality.
func (f *Filter) Equal(g *Filter) bool {
	if f == nil || g == nil {
		return f == g
	}
	if f.Kind != g.Kind || f.Path != g.Path || len(f.Sub) != len(g.Sub) {
		return false
	}
	for i := range f.Sub {
		if !f.Sub[i].Equal(g.Sub[i]) {
			return false
		}
	}
	return true
}

// IsNop reports whether f is the identity filter.
func (f *Filter) IsNop() bool { return f.Kind == KindNop }
