package project

import (
	"context"
	"strings"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// parentInstruction tells the projector how to project one parent of a
// commit (spec §4.4 3b): either under the same filter as the commit
// itself (Same), or under a different filter entirely (Transform) — the
// latter is only produced by Workspace, whose nested filter can vary
// commit to commit as workspace.josh content changes.
type parentInstruction struct {
	filter *filter.Filter
}

func same(f *filter.Filter) parentInstruction { return parentInstruction{filter: f} }

// applyToCommit computes (new_tree_oid, parent_instructions) for commit c
// under filter f (spec §4.4 3b). Every variant except Workspace projects
// all parents under the same filter; Workspace re-derives its nested
// filter from c's own tree and instructs parents to be projected under
// that nested filter, since a workspace.josh can legitimately differ
// between a commit and its parents.
func applyToCommit(ctx context.Context, tr *treeproj.Transformer, f *filter.Filter, c *store.Commit) (plumbing.Oid, []parentInstruction, error) {
	if f.Kind == filter.KindWorkspace {
		nested, err := workspaceNestedFilter(ctx, tr, f.Path, c.Tree)
		if err != nil {
			return plumbing.ZeroOid, nil, err
		}
		newTree, err := tr.Apply(ctx, f, c.Tree)
		if err != nil {
			return plumbing.ZeroOid, nil, err
		}
		instructions := make([]parentInstruction, len(c.Parents))
		for i := range c.Parents {
			instructions[i] = same(nested)
		}
		return newTree, instructions, nil
	}

	newTree, err := tr.Apply(ctx, f, c.Tree)
	if err != nil {
		return plumbing.ZeroOid, nil, err
	}
	instructions := make([]parentInstruction, len(c.Parents))
	for i := range c.Parents {
		instructions[i] = same(f)
	}
	return newTree, instructions, nil
}

// workspaceNestedFilter reads workspace.josh from tree[p] the same way
// treeproj.applyWorkspace does internally; duplicated here (rather than
// exported from treeproj) because the projector needs the filter value
// itself, not just its application, to build parent instructions. Only
// a missing subtree or missing workspace.josh (errs.KindNotFound)
// degrades to Empty, matching treeproj's applyWorkspace/applySubdir —
// any other error (a genuine store failure) propagates (spec §7: any
// error aborts the call).
func workspaceNestedFilter(ctx context.Context, tr *treeproj.Transformer, p string, tree plumbing.Oid) (*filter.Filter, error) {
	sub, _, err := tr.ResolvePath(ctx, tree, p)
	if err != nil {
		if errs.Of(err) == errs.KindNotFound {
			return filter.Empty(), nil
		}
		return nil, err
	}
	content, err := tr.ReadBlobAtPath(ctx, sub, "workspace.josh")
	if err != nil {
		if errs.Of(err) == errs.KindNotFound {
			return filter.Empty(), nil
		}
		return nil, err
	}
	return filter.Parse(strings.TrimSpace(string(content)))
}
