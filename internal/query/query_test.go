package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/meta"
	"github.com/joshproj/josh/internal/project"
	"github.com/joshproj/josh/internal/query"
	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
	"github.com/joshproj/josh/store/memstore"
)

var sig = store.Signature{Name: "tester", Email: "tester@example.com", When: time.Unix(1700000000, 0).UTC()}

var metaRef = plumbing.ReferenceName("refs/josh/meta")

func commit(t *testing.T, ctx context.Context, s *memstore.Store, tree plumbing.Oid, msg string, parents ...plumbing.Oid) plumbing.Oid {
	t.Helper()
	oid, err := s.WriteCommit(ctx, store.CommitRequest{
		Author: sig, Committer: sig, Message: msg, Tree: tree, Parents: parents,
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

// setup builds a two-directory repo, mirrors it under an upstream namespace
// as "acme/widgets" with a "master" branch, and returns a query Context
// bound to a Subdir("a") transaction.
func setup(t *testing.T) (context.Context, *memstore.Store, *query.Context, plumbing.Oid) {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	tree := buildTree(t, ctx, s, map[string]string{"a/x": "X", "b/y": "Y"})
	root := commit(t, ctx, s, tree, "root")

	mirrorRef := plumbing.UpstreamMirrorRef("acme/widgets", "master")
	require.NoError(t, s.ReferenceSet(ctx, mirrorRef, root, true, ""))

	tx := project.NewTransaction(s, "test", filter.Subdir("a"), project.NewCache())
	qc := query.NewContext(tx, metaRef)
	return ctx, s, qc, root
}

func TestReposDedupsAndFiltersByName(t *testing.T) {
	ctx, _, qc, _ := setup(t)

	repos, err := query.Repos(ctx, qc, "")
	require.NoError(t, err)
	require.Len(t, repos, 1)
	require.Equal(t, "acme/widgets", repos[0].Name())

	repos, err = query.Repos(ctx, qc, "nonexistent/repo")
	require.NoError(t, err)
	require.Empty(t, repos)
}

func TestRepositoryRefsAndRevByBranch(t *testing.T) {
	ctx, s, qc, root := setup(t)

	repos, err := query.Repos(ctx, qc, "acme/widgets")
	require.NoError(t, err)
	require.Len(t, repos, 1)
	repo := repos[0]

	refs, err := repo.Refs(ctx, "")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, "master", refs[0].Name())

	rev, err := refs[0].Rev(ctx, filter.Subdir("a"))
	require.NoError(t, err)
	expected, ok, err := project.NewProjector(project.NewTransaction(s, "test", filter.Subdir("a"), project.NewCache())).Project(ctx, root)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, expected, rev.Hash(), "Hash is root's projection under Subdir(a), a new commit whose tree is {x}")
	require.Equal(t, filter.Subdir("a"), rev.Filter())
}

func TestRepositoryRevByOidAndFile(t *testing.T) {
	ctx, _, qc, root := setup(t)

	repos, err := query.Repos(ctx, qc, "acme/widgets")
	require.NoError(t, err)
	repo := repos[0]

	rev, err := repo.Rev(ctx, root.String(), filter.Subdir("a"))
	require.NoError(t, err)
	require.Equal(t, "root", rev.Summary())

	files, err := rev.Files(ctx, "", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, files, "subdir filter should drop b/y and rename a/x to x")

	f, err := rev.File(ctx, "x")
	require.NoError(t, err)
	text, err := f.Text(ctx)
	require.NoError(t, err)
	require.Equal(t, "X", text)
}

func TestRevisionRevNopShowsOriginalLayout(t *testing.T) {
	ctx, _, qc, root := setup(t)

	repos, err := query.Repos(ctx, qc, "acme/widgets")
	require.NoError(t, err)
	repo := repos[0]

	rev, err := repo.Rev(ctx, root.String(), filter.Nop())
	require.NoError(t, err)

	dirs, err := rev.Dirs(ctx, "", 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, dirs)
}

func TestRevisionParentsWalksHistory(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tree1 := buildTree(t, ctx, s, map[string]string{"a/x": "X"})
	root := commit(t, ctx, s, tree1, "root")
	tree2 := buildTree(t, ctx, s, map[string]string{"a/x": "X2"})
	head := commit(t, ctx, s, tree2, "second", root)

	mirrorRef := plumbing.UpstreamMirrorRef("acme/widgets", "master")
	require.NoError(t, s.ReferenceSet(ctx, mirrorRef, head, true, ""))

	tx := project.NewTransaction(s, "test", filter.Nop(), project.NewCache())
	qc := query.NewContext(tx, metaRef)

	repos, err := query.Repos(ctx, qc, "acme/widgets")
	require.NoError(t, err)
	rev, err := repos[0].Rev(ctx, "master", nil)
	require.NoError(t, err)
	require.Equal(t, head, rev.Hash())

	parents, err := rev.Parents(ctx)
	require.NoError(t, err)
	require.Len(t, parents, 1)
	require.Equal(t, root, parents[0].Hash())
	require.Equal(t, "root", parents[0].Summary())
}

func TestPathMetaRoundTrip(t *testing.T) {
	ctx, s, qc, root := setup(t)

	repos, err := query.Repos(ctx, qc, "acme/widgets")
	require.NoError(t, err)
	rev, err := repos[0].Rev(ctx, root.String(), filter.Subdir("a"))
	require.NoError(t, err)

	p, err := rev.File(ctx, "x")
	require.NoError(t, err)

	overlay := meta.New(s, metaRef)
	_, err = overlay.Write(ctx, root, "review", []meta.Entry{{Path: "a/x", Data: []string{`{"ok":true}`}}})
	require.NoError(t, err)

	records, err := p.Meta(ctx, "review")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.JSONEq(t, `{"ok":true}`, string(records[0].Value))
}

func TestDocumentJsonValueNavigation(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tree := buildTree(t, ctx, s, map[string]string{
		"config.json": `{"name":"widgets","tags":["a","b"],"nested":{"on":true,"count":3}}`,
	})
	root := commit(t, ctx, s, tree, "root")

	mirrorRef := plumbing.UpstreamMirrorRef("acme/widgets", "master")
	require.NoError(t, s.ReferenceSet(ctx, mirrorRef, root, true, ""))

	tx := project.NewTransaction(s, "test", filter.Nop(), project.NewCache())
	qc := query.NewContext(tx, metaRef)

	repos, err := query.Repos(ctx, qc, "acme/widgets")
	require.NoError(t, err)
	rev, err := repos[0].Rev(ctx, "master", nil)
	require.NoError(t, err)

	p, err := rev.File(ctx, "config.json")
	require.NoError(t, err)

	doc, err := p.Json(ctx)
	require.NoError(t, err)
	require.Equal(t, "widgets", doc.String("/name", ""))
	require.True(t, doc.Bool("/nested/on", false))
	require.Equal(t, int64(3), doc.Int("/nested/count", 0))
	require.Equal(t, []any{"a", "b"}, doc.List("/tags"))
	require.Equal(t, "fallback", doc.String("/missing", "fallback"))
}

func TestDocumentDegradesToEmptyObjectOnParseFailure(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tree := buildTree(t, ctx, s, map[string]string{"broken.json": "not json at all {"})
	root := commit(t, ctx, s, tree, "root")

	mirrorRef := plumbing.UpstreamMirrorRef("acme/widgets", "master")
	require.NoError(t, s.ReferenceSet(ctx, mirrorRef, root, true, ""))

	tx := project.NewTransaction(s, "test", filter.Nop(), project.NewCache())
	qc := query.NewContext(tx, metaRef)

	repos, err := query.Repos(ctx, qc, "acme/widgets")
	require.NoError(t, err)
	rev, err := repos[0].Rev(ctx, "master", nil)
	require.NoError(t, err)

	p, err := rev.File(ctx, "broken.json")
	require.NoError(t, err)

	doc, err := p.Json(ctx)
	require.NoError(t, err)
	require.Equal(t, "fallback", doc.String("/anything", "fallback"))
	require.Nil(t, doc.List("/tags"))
}

func TestDocumentTomlAndYaml(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	tree := buildTree(t, ctx, s, map[string]string{
		"config.toml": "name = \"widgets\"\n",
		"config.yaml": "name: widgets\n",
	})
	root := commit(t, ctx, s, tree, "root")

	mirrorRef := plumbing.UpstreamMirrorRef("acme/widgets", "master")
	require.NoError(t, s.ReferenceSet(ctx, mirrorRef, root, true, ""))

	tx := project.NewTransaction(s, "test", filter.Nop(), project.NewCache())
	qc := query.NewContext(tx, metaRef)

	repos, err := query.Repos(ctx, qc, "acme/widgets")
	require.NoError(t, err)
	rev, err := repos[0].Rev(ctx, "master", nil)
	require.NoError(t, err)

	tomlPath, err := rev.File(ctx, "config.toml")
	require.NoError(t, err)
	tomlDoc, err := tomlPath.Toml(ctx)
	require.NoError(t, err)
	require.Equal(t, "widgets", tomlDoc.String("/name", ""))

	yamlPath, err := rev.File(ctx, "config.yaml")
	require.NoError(t, err)
	yamlDoc, err := yamlPath.Yaml(ctx)
	require.NoError(t, err)
	require.Equal(t, "widgets", yamlDoc.String("/name", ""))
}

func TestPathRevInterpolatesTemplate(t *testing.T) {
	ctx, _, qc, root := setup(t)

	repos, err := query.Repos(ctx, qc, "acme/widgets")
	require.NoError(t, err)
	rev, err := repos[0].Rev(ctx, root.String(), filter.Nop())
	require.NoError(t, err)

	p, err := rev.Dir(ctx, "a")
	require.NoError(t, err)

	sub, err := p.Rev(ctx, ":/{path}")
	require.NoError(t, err)
	files, err := sub.Files(ctx, "", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, files)
}

func TestDirRejectsFileAndFileRejectsDir(t *testing.T) {
	ctx, _, qc, root := setup(t)

	repos, err := query.Repos(ctx, qc, "acme/widgets")
	require.NoError(t, err)
	rev, err := repos[0].Rev(ctx, root.String(), filter.Subdir("a"))
	require.NoError(t, err)

	_, err = rev.Dir(ctx, "x")
	require.Error(t, err)

	_, err = rev.File(ctx, "")
	require.Error(t, err)
}
