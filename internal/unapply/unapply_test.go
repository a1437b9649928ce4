package unapply_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/project"
	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/internal/unapply"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
	"github.com/joshproj/josh/store/memstore"
)

var sig = store.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(1700000000, 0).UTC()}

func commit(t *testing.T, ctx context.Context, s *memstore.Store, tree plumbing.Oid, msg string, parents ...plumbing.Oid) plumbing.Oid {
	t.Helper()
	oid, err := s.WriteCommit(ctx, store.CommitRequest{
		Author: sig, Committer: sig, Message: msg, Tree: tree, Parents: parents,
	})
	require.NoError(t, err)
	return oid
}

func buildTree(t *testing.T, ctx context.Context, s *memstore.Store, tr *treeproj.Transformer, files map[string]string) plumbing.Oid {
	t.Helper()
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

func readFile(t *testing.T, ctx context.Context, s *memstore.Store, tr *treeproj.Transformer, tree plumbing.Oid, path string) string {
	t.Helper()
	content, err := tr.ReadBlobAtPath(ctx, tree, path)
	require.NoError(t, err)
	return string(content)
}

// unapply(old, old) == NoChanges (property 9).
func TestUnapplyNoChanges(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tr := treeproj.New(s)
	tree := buildTree(t, ctx, s, tr, map[string]string{"a/x": "X"})
	c := commit(t, ctx, s, tree, "root")

	tx := project.NewTransaction(s, "test", filter.Subdir("a"), project.NewCache())
	p := project.NewProjector(tx)
	projected, ok, err := p.Project(ctx, c)
	require.NoError(t, err)
	require.True(t, ok)

	u := unapply.New(tx)
	res, err := u.Unapply(ctx, projected, projected)
	require.NoError(t, err)
	require.Equal(t, unapply.NoChanges, res.Kind)
}

// S5 — unapply round-trip: edit the projected tree and unapply it back onto
// the original, producing the edited path alongside everything the filter
// excluded, verbatim.
func TestUnapplyRoundTripS5(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tr := treeproj.New(s)
	tree := buildTree(t, ctx, s, tr, map[string]string{"a/x": "X", "b/y": "Y"})
	root := commit(t, ctx, s, tree, "root")

	f := filter.Subdir("a")
	tx := project.NewTransaction(s, "test", f, project.NewCache())
	p := project.NewProjector(tx)
	projected, ok, err := p.Project(ctx, root)
	require.NoError(t, err)
	require.True(t, ok)

	projCommit, err := s.FindCommit(ctx, projected)
	require.NoError(t, err)
	editedTree, err := tr.Insert(ctx, projCommit.Tree, "x", mustBlob(t, ctx, s, "X2"), store.ModeFile)
	require.NoError(t, err)
	edited := commit(t, ctx, s, editedTree, "edit x", projected)

	u := unapply.New(tx)
	res, err := u.Unapply(ctx, projected, edited)
	require.NoError(t, err)
	require.Equal(t, unapply.Done, res.Kind)

	rewritten, err := s.FindCommit(ctx, res.Oid)
	require.NoError(t, err)
	require.Equal(t, "X2", readFile(t, ctx, s, tr, rewritten.Tree, "a/x"))
	require.Equal(t, "Y", readFile(t, ctx, s, tr, rewritten.Tree, "b/y"))
}

// S6 — a merge anywhere in the projected range rejects.
func TestUnapplyRejectMergeS6(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tr := treeproj.New(s)
	tree := buildTree(t, ctx, s, tr, map[string]string{"a/x": "X"})
	root := commit(t, ctx, s, tree, "root")

	f := filter.Subdir("a")
	tx := project.NewTransaction(s, "test", f, project.NewCache())
	p := project.NewProjector(tx)
	projected, ok, err := p.Project(ctx, root)
	require.NoError(t, err)
	require.True(t, ok)

	branchTree := buildTree(t, ctx, s, tr, map[string]string{"x": "X1"})
	branch := commit(t, ctx, s, branchTree, "branch edit", projected)
	mergeTree := buildTree(t, ctx, s, tr, map[string]string{"x": "X2"})
	merge := commit(t, ctx, s, mergeTree, "merge", projected, branch)

	u := unapply.New(tx)
	res, err := u.Unapply(ctx, projected, merge)
	require.NoError(t, err)
	require.Equal(t, unapply.RejectMerge, res.Kind)
}

// unapply(old, new) when backward lacks old yields RejectNoFF (property 12).
func TestUnapplyRejectNoFFUnknownOld(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tr := treeproj.New(s)
	tree := buildTree(t, ctx, s, tr, map[string]string{"a/x": "X"})
	root := commit(t, ctx, s, tree, "root")
	unrelatedTree := buildTree(t, ctx, s, tr, map[string]string{"x": "Z"})
	unrelated := commit(t, ctx, s, unrelatedTree, "unrelated")

	tx := project.NewTransaction(s, "test", filter.Subdir("a"), project.NewCache())
	u := unapply.New(tx)
	res, err := u.Unapply(ctx, unrelated, root)
	require.NoError(t, err)
	require.Equal(t, unapply.RejectNoFF, res.Kind)
}

// unapply(old, new) when new does not descend from old yields RejectNoFF
// (spec §4.5 step 3).
func TestUnapplyRejectNoFFNotDescendant(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tr := treeproj.New(s)
	tree := buildTree(t, ctx, s, tr, map[string]string{"a/x": "X"})
	root := commit(t, ctx, s, tree, "root")

	f := filter.Subdir("a")
	tx := project.NewTransaction(s, "test", f, project.NewCache())
	p := project.NewProjector(tx)
	projected, ok, err := p.Project(ctx, root)
	require.NoError(t, err)
	require.True(t, ok)

	sideTree := buildTree(t, ctx, s, tr, map[string]string{"a/x": "sideways"})
	sideRoot := commit(t, ctx, s, sideTree, "unrelated root")
	sideProjected, ok, err := p.Project(ctx, sideRoot)
	require.NoError(t, err)
	require.True(t, ok)

	u := unapply.New(tx)
	res, err := u.Unapply(ctx, projected, sideProjected)
	require.NoError(t, err)
	require.Equal(t, unapply.RejectNoFF, res.Kind)
}

func mustBlob(t *testing.T, ctx context.Context, s *memstore.Store, content string) plumbing.Oid {
	t.Helper()
	oid, err := s.WriteBlob(ctx, []byte(content))
	require.NoError(t, err)
	return oid
}
