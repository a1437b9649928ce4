// Package unapply is the reverse-projection pipeline (component E, spec
// §4.5): it rewrites new commits made against a projected branch back onto
// the original branch the projection was computed from.
package unapply

import (
	"context"

	"github.com/joshproj/josh/internal/project"
	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// ResultKind tags which of unapply's four outcomes a call produced.
type ResultKind int

const (
	NoChanges ResultKind = iota
	Done
	RejectNoFF
	RejectMerge
)

// Result is the outcome of a single Unapply call. Oid is only meaningful
// when Kind == Done.
type Result struct {
	Kind ResultKind
	Oid  plumbing.Oid
}

// Unapplier rewrites commits made against a projected view back onto the
// original history, using the same Transaction (and therefore the same
// ViewMap) the forward projector populated.
type Unapplier struct {
	tx *project.Transaction
	tr *treeproj.Transformer
}

func New(tx *project.Transaction) *Unapplier {
	return &Unapplier{tx: tx, tr: treeproj.New(tx.Store())}
}

// Unapply implements spec §4.5 steps 1-6: given a projected ref that moved
// from oldProjected to newProjected, it produces the corresponding edit on
// the original history.
func (u *Unapplier) Unapply(ctx context.Context, oldProjected, newProjected plumbing.Oid) (Result, error) {
	u.tx.Lock()
	defer u.tx.Unlock()

	// Step 1.
	if oldProjected == newProjected {
		return Result{Kind: NoChanges}, nil
	}

	// Step 2.
	current, ok := u.tx.Cache().Backward(oldProjected)
	if !ok {
		return Result{Kind: RejectNoFF}, nil
	}

	// Step 3: new must descend from old in the projected history.
	path, err := ancestryPath(ctx, u.tx.Store(), oldProjected, newProjected)
	if err != nil {
		return Result{}, err
	}
	if path == nil {
		return Result{Kind: RejectNoFF}, nil
	}

	f := u.tx.Filter()

	// Steps 4-5: walk old -> new in reverse-topological order (path is
	// already ordered oldest-first, old exclusive, new inclusive).
	for _, m := range path {
		mc, err := u.tx.Store().FindCommit(ctx, m)
		if err != nil {
			return Result{}, err
		}

		// Step 5, merge guard.
		if len(mc.Parents) > 1 {
			return Result{Kind: RejectMerge}, nil
		}

		currentCommit, err := u.tx.Store().FindCommit(ctx, current)
		if err != nil {
			return Result{}, err
		}

		newTree, err := u.tr.Repopulate(ctx, f, currentCommit.Tree, mc.Tree)
		if err != nil {
			return Result{}, err
		}

		req := store.CommitRequest{
			Author:       mc.Author,
			Committer:    mc.Committer,
			Message:      mc.Message,
			Tree:         newTree,
			Parents:      []plumbing.Oid{current},
			ExtraHeaders: mc.ExtraHeaders,
		}
		if newTree == mc.Tree && len(mc.Parents) == 1 && mc.Parents[0] == current {
			req.LikelySame = m
		}
		rewritten, err := u.tx.Store().WriteCommit(ctx, req)
		if err != nil {
			return Result{}, err
		}
		current = rewritten
	}

	// Step 6.
	return Result{Kind: Done, Oid: current}, nil
}

// ancestryPath verifies that oldProjected is an ancestor of newProjected
// (spec §4.5 step 3) and, if so, returns every commit in (oldProjected,
// newProjected] in reverse-topological (ancestors-first) order — the full
// range, not just a first-parent chain, so a merge anywhere in the range is
// visited and triggers RejectMerge, not only one on the mainline. Returns
// nil if oldProjected is not an ancestor of newProjected.
func ancestryPath(ctx context.Context, st store.Store, oldProjected, newProjected plumbing.Oid) ([]plumbing.Oid, error) {
	full, err := st.RevWalk(ctx, store.RevWalkOptions{Push: []plumbing.Oid{newProjected}, Sort: store.SortReverse})
	if err != nil {
		return nil, err
	}
	isAncestor := false
	for _, oid := range full {
		if oid == oldProjected {
			isAncestor = true
			break
		}
	}
	if !isAncestor {
		return nil, nil
	}

	return st.RevWalk(ctx, store.RevWalkOptions{
		Push: []plumbing.Oid{newProjected},
		Hide: []plumbing.Oid{oldProjected},
		Sort: store.SortReverse,
	})
}
