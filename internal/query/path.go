package query

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/meta"
	"github.com/joshproj/josh/plumbing"
)

// Path is (filter, commit_oid, tree_oid, path) (spec §3 "Path"): a single
// navigable location inside a Revision's projected tree.
type Path struct {
	rev  *Revision
	path string
	oid  plumbing.Oid
	dir  bool
}

func (p *Path) Path() string { return p.path }

func (p *Path) Hash() plumbing.Oid { return p.oid }

// Dir resolves relative underneath this path (which must itself be a
// directory).
func (p *Path) Dir(ctx context.Context, relative string) (*Path, error) {
	if !p.dir {
		return nil, errs.WrongKind("%q is not a directory", p.path)
	}
	return p.rev.Dir(ctx, joinPath(p.path, relative))
}

// Meta reads marker records attached at this path under topic (spec §4.6).
// Markers are always keyed by the original commit and canonical path, so
// this remaps p.path back through the revision's filter before lookup.
func (p *Path) Meta(ctx context.Context, topic string) ([]meta.Record, error) {
	originalCommit, err := p.rev.ctx.tx.Store().FindCommit(ctx, p.rev.original)
	if err != nil {
		return nil, err
	}
	return p.rev.ctx.meta.Data(ctx, p.rev.filter, p.rev.original, originalCommit.Tree, topic, p.path)
}

// Rev re-navigates to a Revision selected by filterTemplate, with any
// "{path}" occurrence replaced by this Path's path (spec §4.7
// "Path.rev(filter_template)").
func (p *Path) Rev(ctx context.Context, filterTemplate string) (*Revision, error) {
	spec := strings.ReplaceAll(filterTemplate, "{path}", p.path)
	f, err := filter.Parse(spec)
	if err != nil {
		return nil, err
	}
	return newRevision(ctx, p.rev.ctx, f, p.rev.original)
}

func (p *Path) requireFile() error {
	if p.dir {
		return errs.WrongKind("%q is a directory, not a file", p.path)
	}
	return nil
}

// Text returns the blob content at this path as a string.
func (p *Path) Text(ctx context.Context) (string, error) {
	if err := p.requireFile(); err != nil {
		return "", err
	}
	content, err := p.rev.ctx.tx.Store().FindBlob(ctx, p.oid)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Document is (oid, structured JSON value) (spec §3 "Document").
type Document struct {
	Oid   plumbing.Oid
	Value any
}

// parseDocument builds a Document from raw bytes decoded by decode. Per
// spec §4.7, a parse failure degrades to an empty object rather than
// erroring.
func (p *Path) parseDocument(ctx context.Context, decode func([]byte, *any) error) (*Document, error) {
	content, err := p.Text(ctx)
	if err != nil {
		return nil, err
	}
	var v any
	if err := decode([]byte(content), &v); err != nil {
		v = map[string]any{}
	}
	return &Document{Oid: p.oid, Value: v}, nil
}

func (p *Path) Toml(ctx context.Context) (*Document, error) {
	return p.parseDocument(ctx, func(b []byte, v *any) error {
		_, err := toml.Decode(string(b), v)
		return err
	})
}

func (p *Path) Json(ctx context.Context) (*Document, error) {
	return p.parseDocument(ctx, func(b []byte, v *any) error { return json.Unmarshal(b, v) })
}

func (p *Path) Yaml(ctx context.Context) (*Document, error) {
	return p.parseDocument(ctx, func(b []byte, v *any) error { return yaml.Unmarshal(b, v) })
}

// Value navigates a JSON pointer (RFC 6901) inside d.Value, returning def
// if the pointer does not resolve. at == "" returns the document root.
func (d *Document) Value(at string, def any) any {
	v, ok := resolvePointer(d.Value, at)
	if !ok {
		return def
	}
	return v
}

func (d *Document) String(at string, def string) string {
	v, ok := resolvePointer(d.Value, at)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func (d *Document) Bool(at string, def bool) bool {
	v, ok := resolvePointer(d.Value, at)
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func (d *Document) Int(at string, def int64) int64 {
	v, ok := resolvePointer(d.Value, at)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return def
	}
}

// List returns nil if the pointer does not resolve to a JSON array (spec
// §4.7 "list returns null if not an array").
func (d *Document) List(at string) []any {
	v, ok := resolvePointer(d.Value, at)
	if !ok {
		return nil
	}
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}

// resolvePointer walks a JSON-pointer-like "/"-separated path (§4.7
// "Document.value(at?...) where at is a JSON pointer") through nested
// maps/slices.
func resolvePointer(v any, at string) (any, bool) {
	if at == "" || at == "/" {
		return v, true
	}
	cur := v
	for _, tok := range strings.Split(strings.TrimPrefix(at, "/"), "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch m := cur.(type) {
		case map[string]any:
			next, ok := m[tok]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := parseIndex(tok)
			if err != nil || idx < 0 || idx >= len(m) {
				return nil, false
			}
			cur = m[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func parseIndex(tok string) (int, error) {
	n := 0
	for _, c := range tok {
		if c < '0' || c > '9' {
			return 0, errs.ParseError(0, "invalid JSON pointer index")
		}
		n = n*10 + int(c-'0')
	}
	if tok == "" {
		return 0, errs.ParseError(0, "empty JSON pointer index")
	}
	return n, nil
}
