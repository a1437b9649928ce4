package query

import (
	"context"
	"sort"
	"time"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/project"
	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// Revision is the pair (filter, original_commit_oid) (spec §3 "Revision").
type Revision struct {
	ctx      *Context
	proj     *project.Projector
	filter   *filter.Filter
	original plumbing.Oid

	projected plumbing.Oid
	commit    *store.Commit
}

func newRevision(ctx context.Context, c *Context, f *filter.Filter, original plumbing.Oid) (*Revision, error) {
	proj := c.proj
	if !f.Equal(c.tx.Filter()) {
		proj = project.NewProjector(project.NewTransaction(c.tx.Store(), c.tx.Namespace(), f, project.NewCache()))
	}
	projected, ok, err := proj.Project(ctx, original)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NotFound("revision %s projects to nothing under this filter", original)
	}
	commit, err := c.tx.Store().FindCommit(ctx, projected)
	if err != nil {
		return nil, err
	}
	return &Revision{ctx: c, proj: proj, filter: f, original: original, projected: projected, commit: commit}, nil
}

func (r *Revision) Filter() *filter.Filter { return r.filter }

// Hash is the projected commit oid.
func (r *Revision) Hash() plumbing.Oid { return r.projected }

func (r *Revision) Summary() string { return r.commit.Summary() }

func (r *Revision) Date(format string) string { return r.commit.Committer.When.Format(goFormat(format)) }

// goFormat accepts a Go reference-time layout; the empty string and the
// names "iso" and "rfc3339" select time.RFC3339. strftime-style %
// directives are not translated.
func goFormat(format string) string {
	switch format {
	case "", "iso", "rfc3339":
		return time.RFC3339
	default:
		return format
	}
}

// Rev re-navigates to a related revision: under a different filter
// (filter-or-nil keeps the current one), and optionally resolved back to
// the original commit (original=true) rather than the current projection.
func (r *Revision) Rev(ctx context.Context, f *filter.Filter, original bool) (*Revision, error) {
	if f == nil {
		f = r.filter
	}
	if !original {
		return newRevision(ctx, r.ctx, f, r.projected)
	}
	orig, err := r.proj.FindOriginal(ctx, r.original, r.projected)
	if err != nil {
		return nil, err
	}
	return newRevision(ctx, r.ctx, f, orig)
}

// Parents returns this revision's projected parents, each re-wrapped as a
// Revision over the same filter via their recovered original commit.
func (r *Revision) Parents(ctx context.Context) ([]*Revision, error) {
	out := make([]*Revision, 0, len(r.commit.Parents))
	for _, p := range r.commit.Parents {
		orig, err := r.proj.FindOriginal(ctx, r.original, p)
		if err != nil {
			return nil, err
		}
		rev, err := newRevision(ctx, r.ctx, r.filter, orig)
		if err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	return out, nil
}

// Files lists blob paths under at (root if empty), limited to depth levels
// (0 = unlimited).
func (r *Revision) Files(ctx context.Context, at string, depth int) ([]string, error) {
	return r.listPaths(ctx, at, depth, false)
}

// Dirs lists directory paths under at (root if empty), limited to depth
// levels (0 = unlimited).
func (r *Revision) Dirs(ctx context.Context, at string, depth int) ([]string, error) {
	return r.listPaths(ctx, at, depth, true)
}

func (r *Revision) listPaths(ctx context.Context, at string, depth int, dirs bool) ([]string, error) {
	treeOid := r.commit.Tree
	if at != "" {
		oid, mode, err := r.ctx.tr.ResolvePath(ctx, treeOid, at)
		if err != nil {
			return nil, err
		}
		if !mode.IsDir() {
			return nil, errs.WrongKind("%q is not a directory", at)
		}
		treeOid = oid
	}
	var out []string
	var walk func(oid plumbing.Oid, prefix string, level int) error
	walk = func(oid plumbing.Oid, prefix string, level int) error {
		tree, err := r.ctx.tx.Store().FindTree(ctx, oid)
		if err != nil {
			return err
		}
		for _, e := range tree.Entries {
			p := joinPath(prefix, e.Name)
			if e.Mode.IsDir() {
				if dirs {
					out = append(out, p)
				}
				if depth == 0 || level+1 < depth {
					if err := walk(e.Oid, p, level+1); err != nil {
						return err
					}
				}
				continue
			}
			if !dirs {
				out = append(out, p)
			}
		}
		return nil
	}
	if err := walk(treeOid, at, 0); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// File resolves path to a Path entity addressing a blob.
func (r *Revision) File(ctx context.Context, path string) (*Path, error) {
	oid, mode, err := r.ctx.tr.ResolvePath(ctx, r.commit.Tree, path)
	if err != nil {
		return nil, err
	}
	if mode.IsDir() {
		return nil, errs.WrongKind("%q is a directory, not a file", path)
	}
	return &Path{rev: r, path: path, oid: oid, dir: false}, nil
}

// Dir resolves path (root if empty) to a Path entity addressing a tree.
func (r *Revision) Dir(ctx context.Context, path string) (*Path, error) {
	treeOid := r.commit.Tree
	if path != "" {
		oid, mode, err := r.ctx.tr.ResolvePath(ctx, r.commit.Tree, path)
		if err != nil {
			return nil, err
		}
		if !mode.IsDir() {
			return nil, errs.WrongKind("%q is a file, not a directory", path)
		}
		treeOid = oid
	}
	return &Path{rev: r, path: path, oid: treeOid, dir: true}, nil
}

// Warnings surfaces treeproj.ComputeWarnings for this revision's tree under
// its filter (spec §4.3).
func (r *Revision) Warnings(ctx context.Context) ([]string, error) {
	return treeproj.New(r.ctx.tx.Store()).ComputeWarnings(ctx, r.filter, r.commit.Tree)
}

