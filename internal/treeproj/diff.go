package treeproj

import (
	"context"

	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// diffTrees implements Exclude(f): in_tree minus the blobs that apply(f,
// in_tree) kept, by path (spec §4.3 "Exclude(f): diff(in_tree,
// apply(f, in_tree))").
func (t *Transformer) diffTrees(ctx context.Context, inTree, keep plumbing.Oid) (plumbing.Oid, error) {
	var keepPaths []pathBlob
	if err := t.walkBlobs(ctx, keep, "", func(p string, e store.TreeEntry) error {
		keepPaths = append(keepPaths, pathBlob{path: p, entry: e})
		return nil
	}); err != nil {
		return plumbing.ZeroOid, err
	}
	keepSet := make(map[string]bool, len(keepPaths))
	for _, pb := range keepPaths {
		keepSet[pb.path] = true
	}

	var result []pathBlob
	if err := t.walkBlobs(ctx, inTree, "", func(p string, e store.TreeEntry) error {
		if !keepSet[p] {
			result = append(result, pathBlob{path: p, entry: e})
		}
		return nil
	}); err != nil {
		return plumbing.ZeroOid, err
	}
	return t.buildFromPaths(ctx, result)
}
