// Package treeproj is the tree transformer (component C, spec §4.3): it
// applies a filter to a tree, reverses ("repopulates") a filtered tree
// back into a full tree, reverse-maps paths for the marker overlay, and
// edits trees.
package treeproj

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// maxWorkspaceDepth bounds Workspace filter recursion (spec §9 "Cyclic or
// self-referential filter shapes").
const maxWorkspaceDepth = 32

// Transformer applies filters to trees against a single Store.
type Transformer struct {
	st store.Store
}

func New(st store.Store) *Transformer {
	return &Transformer{st: st}
}

// Apply computes apply(filter, in_tree) → out_tree_oid (spec §4.3).
func (t *Transformer) Apply(ctx context.Context, f *filter.Filter, inTree plumbing.Oid) (plumbing.Oid, error) {
	return t.apply(ctx, f, inTree, 0)
}

func (t *Transformer) apply(ctx context.Context, f *filter.Filter, inTree plumbing.Oid, depth int) (plumbing.Oid, error) {
	switch f.Kind {
	case filter.KindNop:
		return inTree, nil
	case filter.KindEmpty:
		return t.st.EmptyTreeOid(), nil
	case filter.KindSubdir:
		return t.applySubdir(ctx, f.Path, inTree)
	case filter.KindPrefix:
		return t.applyPrefix(ctx, f.Path, inTree)
	case filter.KindGlob:
		return t.applyGlob(ctx, f.Path, inTree)
	case filter.KindExclude:
		return t.applyExclude(ctx, f.Sub[0], inTree, depth)
	case filter.KindCompose:
		return t.applyCompose(ctx, f.Sub, inTree, depth)
	case filter.KindWorkspace:
		return t.applyWorkspace(ctx, f.Path, inTree, depth)
	default:
		return plumbing.ZeroOid, errs.Internal("unknown filter kind %d", f.Kind)
	}
}

func (t *Transformer) applySubdir(ctx context.Context, p string, inTree plumbing.Oid) (plumbing.Oid, error) {
	if p == "" {
		return inTree, nil
	}
	oid, _, err := t.resolvePath(ctx, inTree, p)
	if err != nil {
		if errs.Of(err) == errs.KindNotFound {
			return t.st.EmptyTreeOid(), nil
		}
		return plumbing.ZeroOid, err
	}
	return oid, nil
}

func (t *Transformer) applyPrefix(ctx context.Context, p string, inTree plumbing.Oid) (plumbing.Oid, error) {
	if p == "" {
		return inTree, nil
	}
	segs := strings.Split(p, "/")
	oid := inTree
	for i := len(segs) - 1; i >= 0; i-- {
		newOid, err := t.st.BuildTree(ctx, []store.TreeEntry{{Name: segs[i], Mode: store.ModeDir, Oid: oid}})
		if err != nil {
			return plumbing.ZeroOid, err
		}
		oid = newOid
	}
	return oid, nil
}

func (t *Transformer) applyGlob(ctx context.Context, pattern string, inTree plumbing.Oid) (plumbing.Oid, error) {
	var matched []pathBlob
	err := t.walkBlobs(ctx, inTree, "", func(p string, e store.TreeEntry) error {
		if ok, _ := path.Match(pattern, p); ok {
			matched = append(matched, pathBlob{path: p, entry: e})
		}
		return nil
	})
	if err != nil {
		return plumbing.ZeroOid, err
	}
	return t.buildFromPaths(ctx, matched)
}

func (t *Transformer) applyExclude(ctx context.Context, inner *filter.Filter, inTree plumbing.Oid, depth int) (plumbing.Oid, error) {
	filtered, err := t.apply(ctx, inner, inTree, depth)
	if err != nil {
		return plumbing.ZeroOid, err
	}
	return t.diffTrees(ctx, inTree, filtered)
}

func (t *Transformer) applyCompose(ctx context.Context, subs []*filter.Filter, inTree plumbing.Oid, depth int) (plumbing.Oid, error) {
	cur := inTree
	for _, sub := range subs {
		next, err := t.apply(ctx, sub, cur, depth)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		cur = next
	}
	return cur, nil
}

func (t *Transformer) applyWorkspace(ctx context.Context, p string, inTree plumbing.Oid, depth int) (plumbing.Oid, error) {
	if depth >= maxWorkspaceDepth {
		return plumbing.ZeroOid, errs.Internal("workspace filter nesting exceeds %d", maxWorkspaceDepth)
	}
	sub, err := t.applySubdir(ctx, p, inTree)
	if err != nil {
		return plumbing.ZeroOid, err
	}
	content, err := t.readBlobAtPath(ctx, sub, "workspace.josh")
	if err != nil {
		if errs.Of(err) == errs.KindNotFound {
			return t.st.EmptyTreeOid(), nil
		}
		return plumbing.ZeroOid, err
	}
	nested, err := filter.Parse(strings.TrimSpace(string(content)))
	if err != nil {
		return plumbing.ZeroOid, err
	}
	return t.apply(ctx, nested, inTree, depth+1)
}

type pathBlob struct {
	path  string
	entry store.TreeEntry
}

// walkBlobs walks inTree pre-order, invoking visit(fullPath, entry) for
// every blob (non-tree) entry.
func (t *Transformer) walkBlobs(ctx context.Context, treeOid plumbing.Oid, prefix string, visit func(string, store.TreeEntry) error) error {
	if treeOid.IsZero() || treeOid == t.st.EmptyTreeOid() {
		return nil
	}
	tr, err := t.st.FindTree(ctx, treeOid)
	if err != nil {
		return err
	}
	for _, e := range tr.Entries {
		p := joinPath(prefix, e.Name)
		if e.Mode.IsDir() {
			if err := t.walkBlobs(ctx, e.Oid, p, visit); err != nil {
				return err
			}
			continue
		}
		if err := visit(p, e); err != nil {
			return err
		}
	}
	return nil
}

// buildFromPaths constructs a tree from a flat list of (path, entry)
// pairs, creating intermediate directory trees as needed.
func (t *Transformer) buildFromPaths(ctx context.Context, entries []pathBlob) (plumbing.Oid, error) {
	root := t.st.EmptyTreeOid()
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })
	for _, pb := range entries {
		next, err := t.insert(ctx, root, pb.path, pb.entry.Oid, pb.entry.Mode)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		root = next
	}
	return root, nil
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
