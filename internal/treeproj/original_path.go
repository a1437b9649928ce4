package treeproj

import (
	"context"
	"strings"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/plumbing"
)

// OriginalPath reverses a path through filter f: given the tree the filter
// was applied to (inTree) and a path in the *filtered* output, it returns
// the corresponding path in inTree (spec §4.3 original_path, used by the
// marker overlay, §4.6).
//
// Exclude and Glob preserve path identity (they only remove entries, never
// rename them), so both map out_path to itself.
func (t *Transformer) OriginalPath(ctx context.Context, f *filter.Filter, inTree plumbing.Oid, outPath string) (string, error) {
	switch f.Kind {
	case filter.KindNop, filter.KindExclude, filter.KindGlob:
		return outPath, nil
	case filter.KindEmpty:
		return "", errs.NotFound("path %q does not exist under an empty filter", outPath)
	case filter.KindSubdir:
		if f.Path == "" {
			return outPath, nil
		}
		return joinPath(f.Path, outPath), nil
	case filter.KindPrefix:
		if f.Path == "" {
			return outPath, nil
		}
		rest, ok := strings.CutPrefix(outPath, f.Path+"/")
		if !ok {
			return "", errs.NotFound("path %q is not under prefix %q", outPath, f.Path)
		}
		return rest, nil
	case filter.KindWorkspace:
		return t.originalPathWorkspace(ctx, f.Path, inTree, outPath)
	case filter.KindCompose:
		return t.originalPathCompose(ctx, f.Sub, inTree, outPath)
	default:
		return "", errs.Internal("unknown filter kind %d", f.Kind)
	}
}

// originalPathCompose reverses a Compose(f0, f1, ..., fn) chain by walking
// the sub-filters back to front, each step re-deriving the intermediate
// tree that sub-filter was applied to.
func (t *Transformer) originalPathCompose(ctx context.Context, subs []*filter.Filter, inTree plumbing.Oid, outPath string) (string, error) {
	intermediates := make([]plumbing.Oid, len(subs)+1)
	intermediates[0] = inTree
	for i, sub := range subs {
		next, err := t.apply(ctx, sub, intermediates[i], 0)
		if err != nil {
			return "", err
		}
		intermediates[i+1] = next
	}

	p := outPath
	for i := len(subs) - 1; i >= 0; i-- {
		prev, err := t.OriginalPath(ctx, subs[i], intermediates[i], p)
		if err != nil {
			return "", err
		}
		p = prev
	}
	return p, nil
}

func (t *Transformer) originalPathWorkspace(ctx context.Context, p string, inTree plumbing.Oid, outPath string) (string, error) {
	// applyWorkspace parses workspace.josh out of inTree[p] but then
	// applies the resulting nested filter to the *whole* inTree, so the
	// reverse mapping goes straight through the nested filter with no
	// extra prefixing of p.
	sub, err := t.applySubdir(ctx, p, inTree)
	if err != nil {
		return "", err
	}
	content, err := t.readBlobAtPath(ctx, sub, "workspace.josh")
	if err != nil {
		return "", err
	}
	nested, err := filter.Parse(strings.TrimSpace(string(content)))
	if err != nil {
		return "", err
	}
	return t.OriginalPath(ctx, nested, inTree, outPath)
}
