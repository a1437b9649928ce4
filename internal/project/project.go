package project

import (
	"context"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/tracelog"
	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// Projector lifts the tree transformer to commits (component D, spec
// §4.4), walking the commit DAG and memoizing results in a Transaction's
// ViewMap.
type Projector struct {
	tx *Transaction
	tr *treeproj.Transformer
}

func NewProjector(tx *Transaction) *Projector {
	return &Projector{tx: tx, tr: treeproj.New(tx.Store())}
}

// Project computes project(filter, commit_oid) → Option<projected_oid>
// (spec §4.4). It acquires the transaction's exclusive lock for its
// entire duration (spec §5).
func (p *Projector) Project(ctx context.Context, commitOid plumbing.Oid) (plumbing.Oid, bool, error) {
	p.tx.Lock()
	defer p.tx.Unlock()
	t := tracelog.NewTracker("project")
	projected, ok, err := p.project(ctx, p.tx.Filter(), commitOid)
	if err != nil {
		return plumbing.ZeroOid, false, tracelog.Errorf("project %s: %w", commitOid, err)
	}
	t.Step("project %s -> %s (ok=%v)", commitOid, projected, ok)
	return projected, ok, nil
}

// project is the lock-free core, callable recursively (including under a
// different filter, for Workspace's parent instructions) while already
// holding the transaction lock.
func (p *Projector) project(ctx context.Context, f *filter.Filter, commitOid plumbing.Oid) (plumbing.Oid, bool, error) {
	cache := p.tx.cache

	// Step 1: fast path.
	if projected, ok := cache.Forward(commitOid); ok {
		return projected, true, nil
	}

	// Step 2: reverse-topological walk rooted at commitOid.
	order, err := p.tx.Store().RevWalk(ctx, store.RevWalkOptions{
		Push: []plumbing.Oid{commitOid},
		Sort: store.SortReverse,
	})
	if err != nil {
		return plumbing.ZeroOid, false, err
	}

	for _, c := range order {
		// 3a: skip if already projected (from a prior call, or an
		// earlier commit in this same walk whose history overlaps).
		if _, ok := cache.Forward(c); ok {
			continue
		}
		if err := p.projectOne(ctx, f, c); err != nil {
			return plumbing.ZeroOid, false, err
		}
	}

	projected, ok := cache.Forward(commitOid)
	return projected, ok, nil
}

// projectOne performs steps 3b-3h of the core routine for a single
// commit c, assuming every parent of c has already been projected (true
// by construction, since order is reverse-topological).
func (p *Projector) projectOne(ctx context.Context, f *filter.Filter, c plumbing.Oid) error {
	cache := p.tx.cache

	commit, err := p.tx.Store().FindCommit(ctx, c)
	if err != nil {
		return err
	}

	// 3b.
	newTree, instructions, err := applyToCommit(ctx, p.tr, f, commit)
	if err != nil {
		return err
	}

	// 3c: empty-drop.
	emptyTree := p.tx.Store().EmptyTreeOid()
	if newTree == emptyTree && commit.Tree != emptyTree {
		return nil
	}

	// 3d: project each parent per its instruction, keeping only the ones
	// that succeeded (an instruction's own projection may itself be
	// empty-dropped).
	type candidate struct {
		projected plumbing.Oid
	}
	var candidates []candidate
	for i, parentOid := range commit.Parents {
		instr := instructions[i]
		projectedParent, ok, err := p.project(ctx, instr.filter, parentOid)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{projected: projectedParent})
	}

	// 3e: parent filtering. Keep a projected parent p' if either its tree
	// differs from new_tree, or the original commit backward[p'] maps to
	// has the same tree as c (an identity commit, retained even though
	// its projected tree happens to coincide with new_tree).
	var kept []plumbing.Oid
	for _, cand := range candidates {
		parentCommit, err := p.tx.Store().FindCommit(ctx, cand.projected)
		if err != nil {
			return err
		}
		if parentCommit.Tree != newTree {
			kept = append(kept, cand.projected)
			continue
		}
		if orig, ok := cache.Backward(cand.projected); ok {
			origCommit, err := p.tx.Store().FindCommit(ctx, orig)
			if err != nil {
				return err
			}
			if origCommit.Tree == commit.Tree {
				kept = append(kept, cand.projected)
			}
		}
	}

	// 3f: coalesce.
	if len(kept) == 0 && len(candidates) > 0 {
		cache.setForward(c, candidates[0].projected)
		return nil
	}

	// 3g: rewrite, with signature preservation.
	req := store.CommitRequest{
		Author:       commit.Author,
		Committer:    commit.Committer,
		Message:      commit.Message,
		Tree:         newTree,
		Parents:      kept,
		ExtraHeaders: commit.ExtraHeaders,
	}
	if newTree == commit.Tree && sameParentSet(kept, commit.Parents) {
		req.LikelySame = c
	}
	newOid, err := p.tx.Store().WriteCommit(ctx, req)
	if err != nil {
		return err
	}

	// 3h. backward is recorded even when WriteCommit's LikelySame
	// shortcut returns newOid == c (signature preservation, 3g): that
	// is still a rewrite result, not the coalesce skip of 3f.
	cache.setForward(c, newOid)
	cache.setBackward(newOid, c)
	return nil
}

func sameParentSet(a, b []plumbing.Oid) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ApplyToBranch projects refs/heads/<branch> into
// refs/namespaces/<ns>/refs/heads/<branch>; when branch is "master", it
// additionally mirrors the result at refs/namespaces/<ns>/HEAD (spec §4.4
// apply_to_branch).
func (p *Projector) ApplyToBranch(ctx context.Context, branch string) (plumbing.Oid, error) {
	src := plumbing.NewBranchReferenceName(branch)
	head, err := p.tx.Store().ReferenceTarget(ctx, src)
	if err != nil {
		return plumbing.ZeroOid, err
	}
	projected, ok, err := p.Project(ctx, head)
	if err != nil {
		return plumbing.ZeroOid, err
	}
	if !ok {
		return plumbing.ZeroOid, errs.NotFound("branch %q projects to nothing under this filter", branch)
	}
	dst := p.tx.Refname("refs/heads/" + branch)
	if err := p.tx.Store().ReferenceSet(ctx, dst, projected, true, "josh: project "+branch); err != nil {
		return plumbing.ZeroOid, err
	}
	if branch == "master" {
		headRef := plumbing.NamespacedHEAD(p.tx.Namespace())
		if err := p.tx.Store().ReferenceSet(ctx, headRef, projected, true, "josh: project "+branch); err != nil {
			return plumbing.ZeroOid, err
		}
	}
	tracelog.Infof("applied filter to branch %q: %s -> %s", branch, head, projected)
	return projected, nil
}

// FindOriginal returns the original commit whose projection is
// projectedCommit, given that it is reachable from project(filter,
// originalCommit) (spec §4.4 find_original). It consults backward first,
// then falls back to walking the original history — memoizing projections
// along the way — until one matches.
func (p *Projector) FindOriginal(ctx context.Context, originalCommit, projectedCommit plumbing.Oid) (plumbing.Oid, error) {
	p.tx.Lock()
	defer p.tx.Unlock()

	if orig, ok := p.tx.cache.Backward(projectedCommit); ok {
		return orig, nil
	}

	order, err := p.tx.Store().RevWalk(ctx, store.RevWalkOptions{
		Push: []plumbing.Oid{originalCommit},
		Sort: store.SortReverse,
	})
	if err != nil {
		return plumbing.ZeroOid, err
	}
	for _, c := range order {
		if _, ok := p.tx.cache.Forward(c); !ok {
			if err := p.projectOne(ctx, p.tx.Filter(), c); err != nil {
				return plumbing.ZeroOid, err
			}
		}
		if projected, ok := p.tx.cache.Forward(c); ok && projected == projectedCommit {
			return c, nil
		}
	}
	return plumbing.ZeroOid, errs.NotFound("no original commit projects to %s", projectedCommit)
}
