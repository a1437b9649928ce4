package treeproj

import (
	"context"
	"strings"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// Repopulate produces a full tree whose filtered view equals overlayTree
// while preserving originalTree outside the filter's domain (spec §4.3
// repopulated_tree). It is the partial inverse of Apply, used by the
// unapply engine (§4.5).
func (t *Transformer) Repopulate(ctx context.Context, f *filter.Filter, originalTree, overlayTree plumbing.Oid) (plumbing.Oid, error) {
	switch f.Kind {
	case filter.KindNop:
		return overlayTree, nil
	case filter.KindEmpty:
		return originalTree, nil
	case filter.KindSubdir:
		if f.Path == "" {
			return overlayTree, nil
		}
		return t.insert(ctx, originalTree, f.Path, overlayTree, store.ModeDir)
	case filter.KindPrefix:
		if f.Path == "" {
			return overlayTree, nil
		}
		inner, _, err := t.resolvePath(ctx, overlayTree, f.Path)
		if err != nil {
			if errs.Of(err) == errs.KindNotFound {
				return originalTree, nil
			}
			return plumbing.ZeroOid, err
		}
		return inner, nil
	case filter.KindGlob:
		return t.repopulateByPathSet(ctx, originalTree, overlayTree)
	case filter.KindExclude:
		return t.repopulateExclude(ctx, f.Sub[0], originalTree, overlayTree)
	case filter.KindCompose:
		return t.repopulateCompose(ctx, f.Sub, originalTree, overlayTree)
	case filter.KindWorkspace:
		// Apply runs the filter parsed from originalTree[p]/workspace.josh
		// over the whole tree, so the reverse goes through that nested
		// filter; a missing workspace.josh applies as Empty.
		sub, err := t.applySubdir(ctx, f.Path, originalTree)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		content, err := t.readBlobAtPath(ctx, sub, "workspace.josh")
		if errs.Of(err) == errs.KindNotFound {
			return originalTree, nil
		}
		if err != nil {
			return plumbing.ZeroOid, err
		}
		nested, err := filter.Parse(strings.TrimSpace(string(content)))
		if err != nil {
			return plumbing.ZeroOid, err
		}
		return t.Repopulate(ctx, nested, originalTree, overlayTree)
	default:
		return plumbing.ZeroOid, errs.Internal("unknown filter kind %d", f.Kind)
	}
}

// repopulateByPathSet handles filters (Glob) whose forward direction is a
// pure path-level subset: it replaces, within originalTree, every blob
// that appears in overlayTree at the same path, leaving all other paths
// (including ones Glob excluded) untouched.
func (t *Transformer) repopulateByPathSet(ctx context.Context, originalTree, overlayTree plumbing.Oid) (plumbing.Oid, error) {
	root := originalTree
	var overlayPaths []pathBlob
	if err := t.walkBlobs(ctx, overlayTree, "", func(p string, e store.TreeEntry) error {
		overlayPaths = append(overlayPaths, pathBlob{path: p, entry: e})
		return nil
	}); err != nil {
		return plumbing.ZeroOid, err
	}
	for _, pb := range overlayPaths {
		next, err := t.insert(ctx, root, pb.path, pb.entry.Oid, pb.entry.Mode)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		root = next
	}
	return root, nil
}

// repopulateExclude restores excluded paths from originalTree on top of
// the overlay (which only ever touched the kept paths).
func (t *Transformer) repopulateExclude(ctx context.Context, inner *filter.Filter, originalTree, overlayTree plumbing.Oid) (plumbing.Oid, error) {
	excludedView, err := t.apply(ctx, inner, originalTree, 0)
	if err != nil {
		return plumbing.ZeroOid, err
	}
	root := overlayTree
	var excludedPaths []pathBlob
	if err := t.walkBlobs(ctx, excludedView, "", func(p string, e store.TreeEntry) error {
		excludedPaths = append(excludedPaths, pathBlob{path: p, entry: e})
		return nil
	}); err != nil {
		return plumbing.ZeroOid, err
	}
	for _, pb := range excludedPaths {
		next, err := t.insert(ctx, root, pb.path, pb.entry.Oid, pb.entry.Mode)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		root = next
	}
	return root, nil
}

// repopulateCompose reverses Compose(f0,...,fn) by walking the sub-filters
// back to front, repopulating the intermediate tree that each sub-filter
// produced during Apply.
func (t *Transformer) repopulateCompose(ctx context.Context, subs []*filter.Filter, originalTree, overlayTree plumbing.Oid) (plumbing.Oid, error) {
	intermediates := make([]plumbing.Oid, len(subs)+1)
	intermediates[0] = originalTree
	for i, sub := range subs {
		next, err := t.apply(ctx, sub, intermediates[i], 0)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		intermediates[i+1] = next
	}

	cur := overlayTree
	for i := len(subs) - 1; i >= 0; i-- {
		next, err := t.Repopulate(ctx, subs[i], intermediates[i], cur)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		cur = next
	}
	return cur, nil
}

// ComputeWarnings surfaces non-fatal concerns about applying f to tree
// (spec §4.3 compute_warnings), such as a filter matching nothing.
func (t *Transformer) ComputeWarnings(ctx context.Context, f *filter.Filter, tree plumbing.Oid) ([]string, error) {
	out, err := t.Apply(ctx, f, tree)
	if err != nil {
		return nil, err
	}
	var warnings []string
	if out == t.st.EmptyTreeOid() && tree != t.st.EmptyTreeOid() {
		warnings = append(warnings, "filter "+filter.Spec(f)+" matches nothing at this tree")
	}
	return warnings, nil
}
