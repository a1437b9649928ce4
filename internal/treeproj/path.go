package treeproj

import (
	"context"
	"strings"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// ResolvePath walks down from treeOid following the slash-separated
// segments of p, returning the oid and mode of whatever sits there.
// Exposed for the query surface (component G).
func (t *Transformer) ResolvePath(ctx context.Context, treeOid plumbing.Oid, p string) (plumbing.Oid, store.FileMode, error) {
	return t.resolvePath(ctx, treeOid, p)
}

func (t *Transformer) resolvePath(ctx context.Context, treeOid plumbing.Oid, p string) (plumbing.Oid, store.FileMode, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return treeOid, store.ModeDir, nil
	}
	cur := treeOid
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		tr, err := t.st.FindTree(ctx, cur)
		if err != nil {
			return plumbing.ZeroOid, 0, err
		}
		e, ok := tr.Get(seg)
		if !ok {
			return plumbing.ZeroOid, 0, errs.NotFound("path %q not found", p)
		}
		if i == len(segs)-1 {
			return e.Oid, e.Mode, nil
		}
		if !e.Mode.IsDir() {
			return plumbing.ZeroOid, 0, errs.WrongKind("path %q: %q is not a directory", p, strings.Join(segs[:i+1], "/"))
		}
		cur = e.Oid
	}
	return cur, store.ModeDir, nil
}

// ReadBlobAtPath resolves p under treeOid and returns its blob content.
// Exposed for the query surface (component G), which reads file content
// at arbitrary paths under a projected tree.
func (t *Transformer) ReadBlobAtPath(ctx context.Context, treeOid plumbing.Oid, p string) ([]byte, error) {
	return t.readBlobAtPath(ctx, treeOid, p)
}

func (t *Transformer) readBlobAtPath(ctx context.Context, treeOid plumbing.Oid, p string) ([]byte, error) {
	oid, mode, err := t.resolvePath(ctx, treeOid, p)
	if err != nil {
		return nil, err
	}
	if mode.IsDir() {
		return nil, errs.WrongKind("path %q is a directory, expected blob", p)
	}
	return t.st.FindBlob(ctx, oid)
}

// Insert performs a standard tree-edit: it returns the oid of treeOid with
// blobOid inserted (or replacing an existing entry) at path p, creating
// intermediate directories as needed (spec §4.3 insert).
func (t *Transformer) Insert(ctx context.Context, treeOid plumbing.Oid, p string, blobOid plumbing.Oid, mode store.FileMode) (plumbing.Oid, error) {
	return t.insert(ctx, treeOid, p, blobOid, mode)
}

func (t *Transformer) insert(ctx context.Context, treeOid plumbing.Oid, p string, blobOid plumbing.Oid, mode store.FileMode) (plumbing.Oid, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return plumbing.ZeroOid, errs.Internal("insert: empty path")
	}
	var entries []store.TreeEntry
	if !treeOid.IsZero() && treeOid != t.st.EmptyTreeOid() {
		tr, err := t.st.FindTree(ctx, treeOid)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		entries = tr.Entries
	}

	head, tail, isLeaf := splitFirst(p)
	var childOid plumbing.Oid
	found := false
	out := make([]store.TreeEntry, 0, len(entries)+1)
	for _, e := range entries {
		if e.Name == head {
			childOid, found = e.Oid, true
			continue
		}
		out = append(out, e)
	}

	if isLeaf {
		out = append(out, store.TreeEntry{Name: head, Mode: mode, Oid: blobOid})
	} else {
		if !found {
			childOid = t.st.EmptyTreeOid()
		}
		newChild, err := t.insert(ctx, childOid, tail, blobOid, mode)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		out = append(out, store.TreeEntry{Name: head, Mode: store.ModeDir, Oid: newChild})
	}
	return t.st.BuildTree(ctx, out)
}

// Remove deletes the entry at path p from treeOid, pruning now-empty
// intermediate directories.
func (t *Transformer) Remove(ctx context.Context, treeOid plumbing.Oid, p string) (plumbing.Oid, error) {
	p = strings.Trim(p, "/")
	if treeOid.IsZero() || treeOid == t.st.EmptyTreeOid() || p == "" {
		return treeOid, nil
	}
	tr, err := t.st.FindTree(ctx, treeOid)
	if err != nil {
		return plumbing.ZeroOid, err
	}
	head, tail, isLeaf := splitFirst(p)
	out := make([]store.TreeEntry, 0, len(tr.Entries))
	for _, e := range tr.Entries {
		if e.Name != head {
			out = append(out, e)
			continue
		}
		if isLeaf {
			continue // drop it
		}
		newChild, err := t.Remove(ctx, e.Oid, tail)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		if newChild == t.st.EmptyTreeOid() {
			continue // prune empty directory
		}
		out = append(out, store.TreeEntry{Name: e.Name, Mode: e.Mode, Oid: newChild})
	}
	return t.st.BuildTree(ctx, out)
}

func splitFirst(p string) (head, tail string, isLeaf bool) {
	if i := strings.IndexByte(p, '/'); i >= 0 {
		return p[:i], p[i+1:], false
	}
	return p, "", true
}
