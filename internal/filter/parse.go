package filter

import (
	"strings"

	"github.com/joshproj/josh/internal/errs"
)

// Parse accepts the textual filter DSL (spec §6.1):
//
//	filter := ':/' | ':' path | ':prefix=' path | ':exclude=' filter
//	        | ':workspace=' path | ':glob=' pattern
//	        | '[' filter (',' filter)+ ']'
//
// It is a recursive-descent parser over this restricted grammar.
func Parse(text string) (*Filter, error) {
	p := &parser{s: text}
	f, err := p.parseFilter()
	if err != nil {
		return nil, err
	}
	p.skipComma()
	if p.pos != len(p.s) {
		return nil, errs.ParseError(p.pos, "unexpected trailing input")
	}
	return f, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) skipComma() {
	for p.pos < len(p.s) && p.s[p.pos] == ',' {
		p.pos++
	}
}

func (p *parser) parseFilter() (*Filter, error) {
	if p.pos >= len(p.s) {
		return nil, errs.ParseError(p.pos, "unexpected end of filter spec")
	}
	switch p.s[p.pos] {
	case '[':
		return p.parseComposition()
	case ':':
		return p.parseAtom()
	default:
		return nil, errs.ParseError(p.pos, "expected '[' or ':'")
	}
}

// parseComposition parses '[' filter (',' filter)+ ']'.
func (p *parser) parseComposition() (*Filter, error) {
	start := p.pos
	p.pos++ // consume '['
	var parts []*Filter
	for {
		f, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
		if p.pos >= len(p.s) {
			return nil, errs.ParseError(start, "unterminated composition")
		}
		switch p.s[p.pos] {
		case ',':
			p.pos++
			continue
		case ']':
			p.pos++
			if len(parts) < 2 {
				return nil, errs.ParseError(start, "composition requires at least two filters")
			}
			return ComposeAll(parts...), nil
		default:
			return nil, errs.ParseError(p.pos, "expected ',' or ']' in composition")
		}
	}
}

// parseAtom parses one of the ':'-prefixed forms.
func (p *parser) parseAtom() (*Filter, error) {
	start := p.pos
	p.pos++ // consume ':'
	rest := p.s[p.pos:]

	switch {
	case rest == "" || rest[0] == ',' || rest[0] == ']':
		return nil, errs.ParseError(start, "empty filter atom")
	case rest == "/" || strings.HasPrefix(rest, "/,") || strings.HasPrefix(rest, "/]"):
		p.pos++
		return Nop(), nil
	case strings.HasPrefix(rest, "/"):
		path := p.scanPath(1)
		return Subdir(path), nil
	case strings.HasPrefix(rest, "empty="):
		p.scanPath(len("empty="))
		return Empty(), nil
	case strings.HasPrefix(rest, "prefix="):
		p.pos += len("prefix=")
		path := p.scanPath(0)
		return Prefix(path), nil
	case strings.HasPrefix(rest, "glob="):
		p.pos += len("glob=")
		pattern := p.scanPath(0)
		return Glob(pattern), nil
	case strings.HasPrefix(rest, "workspace="):
		p.pos += len("workspace=")
		path := p.scanPath(0)
		return Workspace(path), nil
	case strings.HasPrefix(rest, "exclude="):
		p.pos += len("exclude=")
		inner, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		return Exclude(inner), nil
	default:
		// Bare `:path` form, equivalent to `:/path`.
		path := p.scanPath(0)
		return Subdir(path), nil
	}
}

// scanPath consumes characters up to (but not including) ',' or ']',
// skipping the first `skip` bytes of the already-known prefix.
func (p *parser) scanPath(skip int) string {
	p.pos += skip
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] != ',' && p.s[p.pos] != ']' {
		p.pos++
	}
	return clean(p.s[start:p.pos])
}

// Spec renders f back into the textual DSL. Spec(f) is the canonical
// inverse of Parse such that Parse(Spec(f)).Equal(f) (spec §4.1, tested
// property 3).
func Spec(f *Filter) string {
	var b strings.Builder
	writeSpec(&b, f)
	return b.String()
}

func writeSpec(b *strings.Builder, f *Filter) {
	switch f.Kind {
	case KindNop:
		b.WriteString(":/")
	case KindEmpty:
		b.WriteString(":empty=")
	case KindSubdir:
		b.WriteString(":/")
		b.WriteString(f.Path)
	case KindPrefix:
		b.WriteString(":prefix=")
		b.WriteString(f.Path)
	case KindGlob:
		b.WriteString(":glob=")
		b.WriteString(f.Path)
	case KindWorkspace:
		b.WriteString(":workspace=")
		b.WriteString(f.Path)
	case KindExclude:
		b.WriteString(":exclude=")
		writeSpec(b, f.Sub[0])
	case KindCompose:
		b.WriteByte('[')
		for i, sub := range f.Sub {
			if i > 0 {
				b.WriteByte(',')
			}
			writeSpec(b, sub)
		}
		b.WriteByte(']')
	}
}
