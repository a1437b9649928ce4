package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
	"github.com/joshproj/josh/store/memstore"
)

var sig = store.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(1700000000, 0).UTC()}

// fakeFetcher simulates `git fetch` having already populated the store:
// every remote@rev resolves to the same pre-built commit.
type fakeFetcher struct {
	oid plumbing.Oid
}

func (f fakeFetcher) Fetch(_ context.Context, _, _ string) (plumbing.Oid, error) {
	return f.oid, nil
}

func TestRunFetchesProjectsAndLandsTarget(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tr := treeproj.New(s)
	root := s.EmptyTreeOid()
	blob, err := s.WriteBlob(ctx, []byte("X"))
	require.NoError(t, err)
	root, err = tr.Insert(ctx, root, "lib/x", blob, store.ModeFile)
	require.NoError(t, err)
	blob2, err := s.WriteBlob(ctx, []byte("Y"))
	require.NoError(t, err)
	root, err = tr.Insert(ctx, root, "other/y", blob2, store.ModeFile)
	require.NoError(t, err)

	commitOid, err := s.WriteCommit(ctx, store.CommitRequest{
		Author: sig, Committer: sig, Message: "upstream head", Tree: root,
	})
	require.NoError(t, err)

	spec := "[lib:origin@main]:/lib\n"
	err = run(ctx, s, "/repo", fakeFetcher{oid: commitOid}, strings.NewReader(spec))
	require.NoError(t, err)

	target, err := s.ReferenceTarget(ctx, plumbing.NewBranchReferenceName("lib"))
	require.NoError(t, err)

	landed, err := s.FindCommit(ctx, target)
	require.NoError(t, err)
	text, err := tr.ReadBlobAtPath(ctx, landed.Tree, "x")
	require.NoError(t, err)
	require.Equal(t, "X", string(text))
}

func TestRunSkipsEmptyProjection(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tr := treeproj.New(s)
	root := s.EmptyTreeOid()
	blob, err := s.WriteBlob(ctx, []byte("Y"))
	require.NoError(t, err)
	root, err = tr.Insert(ctx, root, "other/y", blob, store.ModeFile)
	require.NoError(t, err)

	commitOid, err := s.WriteCommit(ctx, store.CommitRequest{
		Author: sig, Committer: sig, Message: "no lib here", Tree: root,
	})
	require.NoError(t, err)

	spec := "[lib:origin@main]:/lib\n"
	err = run(ctx, s, "/repo", fakeFetcher{oid: commitOid}, strings.NewReader(spec))
	require.NoError(t, err)

	_, err = s.ReferenceTarget(ctx, plumbing.NewBranchReferenceName("lib"))
	require.Error(t, err, "filter dropped everything, so no target ref should be written")
}

func TestRunReusesTransactionAcrossSameFilter(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tr := treeproj.New(s)
	root := s.EmptyTreeOid()
	blob, err := s.WriteBlob(ctx, []byte("X"))
	require.NoError(t, err)
	root, err = tr.Insert(ctx, root, "lib/x", blob, store.ModeFile)
	require.NoError(t, err)

	commitOid, err := s.WriteCommit(ctx, store.CommitRequest{
		Author: sig, Committer: sig, Message: "upstream head", Tree: root,
	})
	require.NoError(t, err)

	spec := "[a:origin@main]:/lib\n[b:origin@main]:/lib\n"
	err = run(ctx, s, "/repo", fakeFetcher{oid: commitOid}, strings.NewReader(spec))
	require.NoError(t, err)

	aTarget, err := s.ReferenceTarget(ctx, plumbing.NewBranchReferenceName("a"))
	require.NoError(t, err)
	bTarget, err := s.ReferenceTarget(ctx, plumbing.NewBranchReferenceName("b"))
	require.NoError(t, err)
	require.Equal(t, aTarget, bTarget, "identical filter and source commit should project to the same oid")
}
