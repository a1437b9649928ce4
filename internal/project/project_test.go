package project_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/project"
	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
	"github.com/joshproj/josh/store/memstore"
)

var sig = store.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(1700000000, 0).UTC()}

func commit(t *testing.T, ctx context.Context, s *memstore.Store, tree plumbing.Oid, msg string, parents ...plumbing.Oid) plumbing.Oid {
	t.Helper()
	oid, err := s.WriteCommit(ctx, store.CommitRequest{
		Author:    sig,
		Committer: sig,
		Message:   msg,
		Tree:      tree,
		Parents:   parents,
	})
	require.NoError(t, err)
	return oid
}

func buildTree(t *testing.T, ctx context.Context, s *memstore.Store, files map[string]string) plumbing.Oid {
	t.Helper()
	tr := treeproj.New(s)
	root := s.EmptyTreeOid()
	for path, content := range files {
		blob, err := s.WriteBlob(ctx, []byte(content))
		require.NoError(t, err)
		next, err := tr.Insert(ctx, root, path, blob, store.ModeFile)
		require.NoError(t, err)
		root = next
	}
	return root
}

func newTx(s *memstore.Store, f *filter.Filter) *project.Transaction {
	return project.NewTransaction(s, "test", f, project.NewCache())
}

// project(Nop, c) == c, and both forward and backward cache entries record
// the identity mapping.
func TestProjectNopIsIdentity(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tree := buildTree(t, ctx, s, map[string]string{"a/x": "X"})
	c := commit(t, ctx, s, tree, "root")

	tx := newTx(s, filter.Nop())
	p := project.NewProjector(tx)

	projected, ok, err := p.Project(ctx, c)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, c, projected)

	back, ok := tx.Cache().Backward(projected)
	require.True(t, ok)
	require.Equal(t, c, back)
}

// Projecting the same commit twice under the same transaction is
// deterministic and hits the cache the second time (no new commit written).
func TestProjectIsDeterministicAndCached(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tree := buildTree(t, ctx, s, map[string]string{"a/x": "X", "b/y": "Y"})
	c := commit(t, ctx, s, tree, "root")

	tx := newTx(s, filter.Subdir("a"))
	p := project.NewProjector(tx)

	first, ok, err := p.Project(ctx, c)
	require.NoError(t, err)
	require.True(t, ok)

	second, ok, err := p.Project(ctx, c)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, second)
	require.Equal(t, 1, tx.Cache().Len())
}

// A commit whose tree and parent set survive the filter unchanged rewrites
// to itself (content addressing: identical author/committer/message/tree/
// parents hash to the same oid).
func TestProjectPreservesSignatureWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tree := buildTree(t, ctx, s, map[string]string{"a/x": "X"})
	root := commit(t, ctx, s, tree, "root")
	tree2 := buildTree(t, ctx, s, map[string]string{"a/x": "X", "a/y": "Y2"})
	head := commit(t, ctx, s, tree2, "second", root)

	tx := newTx(s, filter.Nop())
	p := project.NewProjector(tx)

	projRoot, ok, err := p.Project(ctx, root)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, root, projRoot)

	projHead, ok, err := p.Project(ctx, head)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, head, projHead)
}

// A commit whose filtered tree is empty (but whose original tree was not)
// is dropped entirely: it gets no forward cache entry, and a child that
// only has this commit as a parent is rewired to skip over it.
func TestProjectDropsEmptyCommitAndCollapsesParentChain(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	rootTree := buildTree(t, ctx, s, map[string]string{"a/x": "X"})
	root := commit(t, ctx, s, rootTree, "root")

	// Middle commit touches only "b/", which filter :/a drops entirely.
	midTree := buildTree(t, ctx, s, map[string]string{"b/z": "Z"})
	mid := commit(t, ctx, s, midTree, "only b", root)

	// Leaf restores "a/" content, with mid as its sole parent.
	leafTree := buildTree(t, ctx, s, map[string]string{"a/x": "X2"})
	leaf := commit(t, ctx, s, leafTree, "a again", mid)

	tx := newTx(s, filter.Subdir("a"))
	p := project.NewProjector(tx)

	_, ok, err := p.Project(ctx, mid)
	require.NoError(t, err)
	require.False(t, ok, "mid's filtered tree is empty relative to its parent and should be dropped")

	projLeaf, ok, err := p.Project(ctx, leaf)
	require.NoError(t, err)
	require.True(t, ok)

	leafCommit, err := s.FindCommit(ctx, projLeaf)
	require.NoError(t, err)
	require.Len(t, leafCommit.Parents, 1)

	projRoot, ok, err := p.Project(ctx, root)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, projRoot, leafCommit.Parents[0], "leaf's rewritten parent should be root, skipping the dropped mid commit")
}

// ApplyToBranch projects refs/heads/<branch> into the transaction's
// namespaced ref, and mirrors master at the namespaced HEAD.
func TestApplyToBranchProjectsAndMirrorsHead(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tree := buildTree(t, ctx, s, map[string]string{"a/x": "X"})
	c := commit(t, ctx, s, tree, "root")
	require.NoError(t, s.ReferenceSet(ctx, plumbing.NewBranchReferenceName("master"), c, true, ""))

	tx := newTx(s, filter.Nop())
	p := project.NewProjector(tx)

	projected, err := p.ApplyToBranch(ctx, "master")
	require.NoError(t, err)
	require.Equal(t, c, projected)

	dst, err := s.ReferenceTarget(ctx, tx.Refname("refs/heads/master"))
	require.NoError(t, err)
	require.Equal(t, c, dst)

	head, err := s.ReferenceTarget(ctx, plumbing.NamespacedHEAD(tx.Namespace()))
	require.NoError(t, err)
	require.Equal(t, c, head)
}

// FindOriginal recovers the original commit for a known projected oid, and
// errors when no original maps to an unrelated oid.
func TestFindOriginal(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tree := buildTree(t, ctx, s, map[string]string{"a/x": "X", "b/y": "Y"})
	root := commit(t, ctx, s, tree, "root")

	tx := newTx(s, filter.Subdir("a"))
	p := project.NewProjector(tx)

	projected, ok, err := p.Project(ctx, root)
	require.NoError(t, err)
	require.True(t, ok)

	orig, err := p.FindOriginal(ctx, root, projected)
	require.NoError(t, err)
	require.Equal(t, root, orig)

	_, err = p.FindOriginal(ctx, root, s.EmptyTreeOid())
	require.Error(t, err)
}
