package meta_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/meta"
	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
	"github.com/joshproj/josh/store/memstore"
)

var sig = store.Signature{Name: "tester", Email: "tester@example.com"}

func commitWithTree(t *testing.T, ctx context.Context, s *memstore.Store, files map[string]string) (plumbing.Oid, plumbing.Oid) {
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
	oid, err := s.WriteCommit(ctx, store.CommitRequest{Author: sig, Committer: sig, Message: "root", Tree: root})
	require.NoError(t, err)
	return oid, root
}

var metaRef = plumbing.ReferenceName("refs/josh/meta")

// S7 — markers. Write (C1, "review", "a/x", [{"ok":true}]). Reading it back
// yields one record with a non-zero oid and value {"ok":true}.
func TestMarkerWriteReadS7(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c1, tree := commitWithTree(t, ctx, s, map[string]string{"a/x": "X"})

	o := meta.New(s, metaRef)
	_, err := o.Write(ctx, c1, "review", []meta.Entry{{Path: "a/x", Data: []string{`{"ok":true}`}}})
	require.NoError(t, err)

	records, err := o.Data(ctx, filter.Nop(), c1, tree, "review", "a/x")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.False(t, records[0].Oid.IsZero())
	require.JSONEq(t, `{"ok":true}`, string(records[0].Value))
}

// Property 13: reading immediately after writing (commit, topic, path,
// [d1,d2]) returns dedup(sort(previous ∪ {d1,d2})).
func TestMarkerUnionSortDedup(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c1, tree := commitWithTree(t, ctx, s, map[string]string{"a/x": "X"})

	o := meta.New(s, metaRef)
	_, err := o.Write(ctx, c1, "review", []meta.Entry{{Path: "a/x", Data: []string{`{"ok":true}`}}})
	require.NoError(t, err)
	_, err = o.Write(ctx, c1, "review", []meta.Entry{{Path: "a/x", Data: []string{`{"ok":true}`, `{"ok":false}`}}})
	require.NoError(t, err)

	records, err := o.Data(ctx, filter.Nop(), c1, tree, "review", "a/x")
	require.NoError(t, err)
	require.Len(t, records, 2, "duplicate {ok:true} record must be deduplicated")
}

// Property 14: marker oid formatting is stable across JSON written with
// different (but semantically equal) whitespace/key order.
func TestMarkerOidFormattingStable(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c1, tree := commitWithTree(t, ctx, s, map[string]string{"a/x": "X"})

	o := meta.New(s, metaRef)
	_, err := o.Write(ctx, c1, "review", []meta.Entry{{Path: "a/x", Data: []string{`{"a":1,"b":2}`}}})
	require.NoError(t, err)
	_, err = o.Write(ctx, c1, "review", []meta.Entry{{Path: "a/x", Data: []string{`  {  "b" : 2, "a" : 1 }  `}}})
	require.NoError(t, err)

	records, err := o.Data(ctx, filter.Nop(), c1, tree, "review", "a/x")
	require.NoError(t, err)
	require.Len(t, records, 1, "semantically identical JSON must canonicalize to the same record")
}

// Reading markers through a non-Nop filter remaps the path through
// original_path before lookup.
func TestMarkerReadThroughFilter(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c1, tree := commitWithTree(t, ctx, s, map[string]string{"a/x": "X"})

	o := meta.New(s, metaRef)
	_, err := o.Write(ctx, c1, "review", []meta.Entry{{Path: "a/x", Data: []string{`{"ok":true}`}}})
	require.NoError(t, err)

	records, err := o.Data(ctx, filter.Subdir("a"), c1, tree, "review", "x")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

// Count sums record lines across the whole subtree at a path.
func TestMarkerCountAcrossSubtree(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c1, tree := commitWithTree(t, ctx, s, map[string]string{"a/x": "X", "a/y": "Y"})

	o := meta.New(s, metaRef)
	_, err := o.Write(ctx, c1, "review", []meta.Entry{
		{Path: "a/x", Data: []string{`{"n":1}`}},
		{Path: "a/y", Data: []string{`{"n":2}`, `{"n":3}`}},
	})
	require.NoError(t, err)

	n, err := o.Count(ctx, filter.Nop(), c1, tree, "review", "a")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

// No records written yet returns an empty set, not an error.
func TestMarkerDataBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	c1, tree := commitWithTree(t, ctx, s, map[string]string{"a/x": "X"})

	o := meta.New(s, metaRef)
	records, err := o.Data(ctx, filter.Nop(), c1, tree, "review", "a/x")
	require.NoError(t, err)
	require.Nil(t, records)
}
