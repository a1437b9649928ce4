// Package query is the read-only navigation surface (component G, spec
// §4.7): repositories, references, revisions, paths, and parsed documents,
// all built on top of the commit projector and tree transformer without
// introducing any caches of their own.
package query

import (
	"context"
	"sort"
	"strings"

	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/meta"
	"github.com/joshproj/josh/internal/project"
	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/plumbing"
)

// Context wraps a transaction (and therefore its store and ViewMap) plus a
// meta overlay, the two collaborators every query entity navigates through.
type Context struct {
	tx   *project.Transaction
	meta *meta.Overlay
	tr   *treeproj.Transformer
	proj *project.Projector
}

func NewContext(tx *project.Transaction, metaRef plumbing.ReferenceName) *Context {
	return &Context{
		tx:   tx,
		meta: meta.New(tx.Store(), metaRef),
		tr:   treeproj.New(tx.Store()),
		proj: project.NewProjector(tx),
	}
}

// Repository is a deduplicated upstream mirror namespace (spec §6.2
// "refs/josh/upstream/<repo-ns>.git/refs/heads/<branch>").
type Repository struct {
	ctx *Context
	ns  string
}

// Repos dedups repository namespaces from refs/josh/upstream/*.git/refs/
// heads/* (spec §4.7 "repos(name?)"); name, if non-empty, filters to that
// exact namespace.
func Repos(ctx context.Context, c *Context, name string) ([]Repository, error) {
	names, err := c.tx.Store().ReferencesGlob(ctx, plumbing.UpstreamMirrorPrefix()+"*")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []Repository
	for _, n := range names {
		ns, ok := repoNSFromMirrorRef(string(n))
		if !ok || seen[ns] {
			continue
		}
		decoded := plumbing.DecodeRepoNamespace(ns)
		if name != "" && decoded != name {
			continue
		}
		seen[ns] = true
		out = append(out, Repository{ctx: c, ns: ns})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ns < out[j].ns })
	return out, nil
}

// repoNSFromMirrorRef extracts <repo-ns> from
// refs/josh/upstream/<repo-ns>.git/refs/heads/<branch>.
func repoNSFromMirrorRef(ref string) (string, bool) {
	rest, ok := strings.CutPrefix(ref, plumbing.UpstreamMirrorPrefix())
	if !ok {
		return "", false
	}
	i := strings.Index(rest, ".git/refs/heads/")
	if i < 0 {
		return "", false
	}
	return rest[:i], true
}

func (r Repository) Name() string { return plumbing.DecodeRepoNamespace(r.ns) }

// Refs lists upstream branch references, optionally matching a glob
// pattern over the short branch name.
func (r Repository) Refs(ctx context.Context, pattern string) ([]Reference, error) {
	names, err := r.ctx.tx.Store().ReferencesGlob(ctx, plumbing.UpstreamMirrorPrefix()+r.ns+".git/refs/heads/*")
	if err != nil {
		return nil, err
	}
	var out []Reference
	for _, n := range names {
		branch := strings.TrimPrefix(string(n), plumbing.UpstreamMirrorPrefix()+r.ns+".git/refs/heads/")
		if pattern != "" && !globMatch(pattern, branch) {
			continue
		}
		out = append(out, Reference{repo: r, name: branch})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// Rev resolves at (an oid hex string or a branch name under this
// repository's upstream namespace) and returns the Revision projecting it
// under f (Nop if f is nil).
func (r Repository) Rev(ctx context.Context, at string, f *filter.Filter) (*Revision, error) {
	if f == nil {
		f = filter.Nop()
	}
	oid, ok := plumbing.ParseOid(at)
	if !ok {
		ref := plumbing.UpstreamMirrorRef(r.ns, at)
		var err error
		oid, err = r.ctx.tx.Store().ReferenceTarget(ctx, ref)
		if err != nil {
			return nil, err
		}
	}
	return newRevision(ctx, r.ctx, f, oid)
}

// Reference is a named upstream branch.
type Reference struct {
	repo Repository
	name string
}

func (ref Reference) Name() string { return ref.name }

func (ref Reference) Rev(ctx context.Context, f *filter.Filter) (*Revision, error) {
	return ref.repo.Rev(ctx, ref.name, f)
}

// globMatch supports the single-"*" glob forms refs are matched against
// throughout this engine (prefix*, *suffix, prefix*suffix, exact).
func globMatch(pattern, name string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == name
	}
	parts := strings.SplitN(pattern, "*", 2)
	return strings.HasPrefix(name, parts[0]) && strings.HasSuffix(name, parts[1])
}

