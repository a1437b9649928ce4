// Package store defines the Repository Store adapter contract (component A,
// spec §4.2): the capability interface the rest of the projection engine
// uses for all object lookup/insertion and reference management. The core
// never touches pack files or loose-object encoding directly — that is
// delegated entirely to a Store implementation (see store/gitcli and
// store/memstore).
package store

import (
	"context"
	"strings"
	"time"

	"github.com/joshproj/josh/plumbing"
)

// Signature is a commit author/committer identity, mirroring the teacher's
// modules/zeta/object.Signature shape.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// TreeEntry is one entry of a Tree: a name, mode, and the oid of the blob or
// sub-tree it names.
type TreeEntry struct {
	Name string
	Mode FileMode
	Oid  plumbing.Oid
}

// Tree is an ordered list of entries, as read back from the store. It
// carries no nested object graph; callers re-resolve sub-trees with
// FindTree as needed (mirroring git's own flat tree encoding).
type Tree struct {
	Oid     plumbing.Oid
	Entries []TreeEntry
}

// Get returns the entry named `name` directly under this tree, or false.
func (t *Tree) Get(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}

// Commit is a parsed commit object.
type Commit struct {
	Oid       plumbing.Oid
	Tree      plumbing.Oid
	Parents   []plumbing.Oid
	Author    Signature
	Committer Signature
	Message   string
	// ExtraHeaders preserves headers that are not author/committer/tree/
	// parent (e.g. "gpgsig", "mergetag"), in original order, so that the
	// rewrite invariant (§4.4 3g) can reproduce a byte-identical commit.
	ExtraHeaders []ExtraHeader
}

// ExtraHeader is a single non-standard commit header line, mirroring the
// teacher's modules/zeta/object.ExtraHeader (needed to round-trip signed
// commits verbatim).
type ExtraHeader struct {
	K string
	V string
}

func (c *Commit) Summary() string {
	if i := strings.IndexAny(c.Message, "\r\n"); i != -1 {
		return c.Message[:i]
	}
	return c.Message
}

// Order controls revwalk traversal order (§4.2).
type Order int

const (
	// SortTopo visits a commit only after all of its children have been
	// visited (git's default --topo-order, newest-first per branch).
	SortTopo Order = iota
	// SortReverse additionally reverses the topo order so that ancestors
	// are produced before descendants — this is the order the commit
	// projector (§4.4 step 2/3) walks in.
	SortReverse
)

// RevWalkOptions configures Store.RevWalk.
type RevWalkOptions struct {
	// Push are the starting points (tips) of the walk.
	Push []plumbing.Oid
	// Hide excludes these commits and their ancestors, like `git log
	// ^hide push`. May be nil.
	Hide []plumbing.Oid
	Sort Order
}

// Store is the capability interface the rest of the engine is built
// against (component A). Implementations: store/gitcli (shells to a real
// `git` binary's plumbing commands) and store/memstore (in-process, for
// tests).
type Store interface {
	// Object access.
	FindBlob(ctx context.Context, oid plumbing.Oid) ([]byte, error)
	WriteBlob(ctx context.Context, content []byte) (plumbing.Oid, error)
	FindTree(ctx context.Context, oid plumbing.Oid) (*Tree, error)
	BuildTree(ctx context.Context, entries []TreeEntry) (plumbing.Oid, error)
	EmptyTreeOid() plumbing.Oid
	FindCommit(ctx context.Context, oid plumbing.Oid) (*Commit, error)
	// WriteCommit writes a new commit object. When a commit already exists
	// with this exact (author, committer, message, tree, parents) tuple,
	// implementations MUST return that commit's oid unchanged rather than
	// writing a duplicate — this is the signature-preservation invariant
	// of §4.4 3g, which write_commit itself is responsible for honoring
	// whenever parents/tree/message are identical to an existing commit
	// passed in as `likelySame`.
	WriteCommit(ctx context.Context, c CommitRequest) (plumbing.Oid, error)
	HashObject(ctx context.Context, kind string, content []byte) (plumbing.Oid, error)

	// References.
	ReferenceSet(ctx context.Context, name plumbing.ReferenceName, oid plumbing.Oid, force bool, reflogMsg string) error
	ReferenceTarget(ctx context.Context, name plumbing.ReferenceName) (plumbing.Oid, error)
	ReferencesGlob(ctx context.Context, pattern string) ([]plumbing.ReferenceName, error)
	RevparseSingle(ctx context.Context, spec string) (plumbing.Oid, error)

	// RevWalk returns oids in the requested order. The returned slice is
	// fully materialized; callers needing laziness wrap it themselves —
	// repositories in this domain are filtered, locally-hosted mirrors,
	// not the scale that demands a streaming walk.
	RevWalk(ctx context.Context, opts RevWalkOptions) ([]plumbing.Oid, error)

	SignatureDefault(ctx context.Context) Signature
}

// CommitRequest carries everything needed to write a new commit, plus the
// optional oid of a pre-existing commit this would duplicate exactly
// (likelySame), letting implementations honor signature preservation
// without re-deriving it from a lookup.
type CommitRequest struct {
	Author       Signature
	Committer    Signature
	Message      string
	Tree         plumbing.Oid
	Parents      []plumbing.Oid
	ExtraHeaders []ExtraHeader
	// LikelySame, if non-zero, names a commit whose tree/parents/message
	// the caller has already determined are identical to this request;
	// WriteCommit returns it unchanged instead of writing a new object.
	LikelySame plumbing.Oid
}
