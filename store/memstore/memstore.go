// Package memstore is an in-process Store implementation (component A),
// used by the engine's tests so they don't require a `git` binary on the
// runner. It computes real git-compatible oids (SHA-1 over the canonical
// object encoding) so that cache/rewrite invariants are exercised exactly
// as they would be against a real repository.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

type Store struct {
	mu sync.Mutex

	blobs   map[plumbing.Oid][]byte
	trees   map[plumbing.Oid][]store.TreeEntry
	commits map[plumbing.Oid]*store.Commit
	refs    map[plumbing.ReferenceName]plumbing.Oid

	emptyTree plumbing.Oid
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	s := &Store{
		blobs:   make(map[plumbing.Oid][]byte),
		trees:   make(map[plumbing.Oid][]store.TreeEntry),
		commits: make(map[plumbing.Oid]*store.Commit),
		refs:    make(map[plumbing.ReferenceName]plumbing.Oid),
	}
	s.emptyTree = plumbing.HashObject("tree", nil)
	s.trees[s.emptyTree] = nil
	return s
}

func (s *Store) FindBlob(_ context.Context, oid plumbing.Oid) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[oid]
	if !ok {
		return nil, errs.NotFound("blob %s not found", oid)
	}
	return b, nil
}

func (s *Store) WriteBlob(_ context.Context, content []byte) (plumbing.Oid, error) {
	oid := plumbing.HashObject("blob", content)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[oid]; !ok {
		cp := make([]byte, len(content))
		copy(cp, content)
		s.blobs[oid] = cp
	}
	return oid, nil
}

func (s *Store) FindTree(_ context.Context, oid plumbing.Oid) (*store.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.trees[oid]
	if !ok {
		return nil, errs.NotFound("tree %s not found", oid)
	}
	out := make([]store.TreeEntry, len(entries))
	copy(out, entries)
	return &store.Tree{Oid: oid, Entries: out}, nil
}

func (s *Store) BuildTree(_ context.Context, entries []store.TreeEntry) (plumbing.Oid, error) {
	sorted := make([]store.TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return subtreeName(sorted[i]) < subtreeName(sorted[j])
	})
	oid := plumbing.HashObject("tree", store.EncodeTree(sorted))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trees[oid]; !ok {
		s.trees[oid] = sorted
	}
	return oid, nil
}

func subtreeName(e store.TreeEntry) string {
	if e.Mode.IsDir() {
		return e.Name + "/"
	}
	return e.Name + "\x00"
}

func (s *Store) EmptyTreeOid() plumbing.Oid { return s.emptyTree }

func (s *Store) FindCommit(_ context.Context, oid plumbing.Oid) (*store.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commits[oid]
	if !ok {
		return nil, errs.NotFound("commit %s not found", oid)
	}
	cp := *c
	cp.Parents = append([]plumbing.Oid(nil), c.Parents...)
	return &cp, nil
}

func (s *Store) WriteCommit(_ context.Context, req store.CommitRequest) (plumbing.Oid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !req.LikelySame.IsZero() {
		if existing, ok := s.commits[req.LikelySame]; ok && store.SameCommit(req, existing) {
			return req.LikelySame, nil
		}
	}
	oid := plumbing.HashObject("commit", store.EncodeCommit(req))
	if _, ok := s.commits[oid]; !ok {
		s.commits[oid] = &store.Commit{
			Oid:          oid,
			Tree:         req.Tree,
			Parents:      append([]plumbing.Oid(nil), req.Parents...),
			Author:       req.Author,
			Committer:    req.Committer,
			Message:      req.Message,
			ExtraHeaders: append([]store.ExtraHeader(nil), req.ExtraHeaders...),
		}
	}
	return oid, nil
}

func (s *Store) HashObject(_ context.Context, kind string, content []byte) (plumbing.Oid, error) {
	return plumbing.HashObject(kind, content), nil
}

// ReferenceSet always succeeds regardless of force: fast-forward checking
// against the previous tip is the responsibility of the caller (the unapply
// engine computes and rejects non-fast-forwards itself, per §4.5
// RejectNoFF); store/gitcli's ReferenceSet does no such check either.
func (s *Store) ReferenceSet(_ context.Context, name plumbing.ReferenceName, oid plumbing.Oid, _ bool, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[name] = oid
	return nil
}

func (s *Store) ReferenceTarget(_ context.Context, name plumbing.ReferenceName) (plumbing.Oid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	oid, ok := s.refs[name]
	if !ok {
		return plumbing.ZeroOid, errs.NotFound("reference %s not found", name)
	}
	return oid, nil
}

func (s *Store) ReferencesGlob(_ context.Context, pattern string) ([]plumbing.ReferenceName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []plumbing.ReferenceName
	for name := range s.refs {
		if globMatch(pattern, string(name)) {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// globMatch supports the single "*" wildcard forms this engine actually
// needs (prefix*, *suffix, prefix*suffix) — references are enumerated under
// a handful of fixed prefixes (§6.2), not arbitrary shell globs.
func globMatch(pattern, name string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == name
	}
	parts := strings.SplitN(pattern, "*", 2)
	return strings.HasPrefix(name, parts[0]) && strings.HasSuffix(name, parts[1])
}

func (s *Store) RevparseSingle(ctx context.Context, spec string) (plumbing.Oid, error) {
	if oid, ok := plumbing.ParseOid(spec); ok {
		return oid, nil
	}
	return s.ReferenceTarget(ctx, plumbing.ReferenceName(spec))
}

// RevWalk computes the reachable set (push's ancestors, minus hide and
// hide's own ancestors), then orders it with Kahn's algorithm
// over the parent/child edges, using a committer-time max-heap to break
// ties between simultaneously-ready commits — the same heap-ordered
// exploration idiom as the teacher's commitIteratorByCTime
// (modules/zeta/object/commit_walker_ctime.go), adapted from a plain
// explorer heap into a topological-sort ready-queue so that multi-parent
// and multi-branch histories still come out in a deterministic,
// newest-first-among-ties order (mirroring `git rev-list --topo-order`).
func (s *Store) RevWalk(_ context.Context, opts store.RevWalkOptions) ([]plumbing.Oid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hidden := make(map[plumbing.Oid]bool)
	var collectHidden func(oid plumbing.Oid)
	collectHidden = func(oid plumbing.Oid) {
		if oid.IsZero() || hidden[oid] {
			return
		}
		hidden[oid] = true
		if c, ok := s.commits[oid]; ok {
			for _, p := range c.Parents {
				collectHidden(p)
			}
		}
	}
	for _, h := range opts.Hide {
		collectHidden(h)
	}

	// Discover the reachable set (push's ancestors, minus hidden).
	reachable := make(map[plumbing.Oid]bool)
	var discover func(oid plumbing.Oid)
	discover = func(oid plumbing.Oid) {
		if oid.IsZero() || reachable[oid] || hidden[oid] {
			return
		}
		c, ok := s.commits[oid]
		if !ok {
			return
		}
		reachable[oid] = true
		for _, p := range c.Parents {
			discover(p)
		}
	}
	for _, p := range opts.Push {
		discover(p)
	}

	// childCount[c] = number of c's children still unemitted within the
	// reachable set; a commit is ready once its childCount reaches zero,
	// i.e. every commit that depends on it (child before parent) has
	// already been emitted.
	childCount := make(map[plumbing.Oid]int)
	for oid := range reachable {
		childCount[oid] = 0
	}
	for oid := range reachable {
		for _, p := range s.commits[oid].Parents {
			if reachable[p] {
				childCount[p]++
			}
		}
	}

	ready := binaryheap.NewWith(func(a, b any) int {
		ca, cb := s.commits[a.(plumbing.Oid)], s.commits[b.(plumbing.Oid)]
		if ca.Committer.When.Equal(cb.Committer.When) {
			return strings.Compare(a.(plumbing.Oid).String(), b.(plumbing.Oid).String())
		}
		if ca.Committer.When.Before(cb.Committer.When) {
			return 1
		}
		return -1
	})
	for oid, n := range childCount {
		if n == 0 {
			ready.Push(oid)
		}
	}

	order := make([]plumbing.Oid, 0, len(reachable))
	for {
		v, ok := ready.Pop()
		if !ok {
			break
		}
		oid := v.(plumbing.Oid)
		order = append(order, oid)
		for _, p := range s.commits[oid].Parents {
			if !reachable[p] {
				continue
			}
			childCount[p]--
			if childCount[p] == 0 {
				ready.Push(p)
			}
		}
	}

	// order is now child-before-parent (newest-first among ties), i.e.
	// SortTopo. SortReverse wants ancestors before descendants.
	if opts.Sort == store.SortReverse {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	return order, nil
}

func (s *Store) SignatureDefault(_ context.Context) store.Signature {
	return store.Signature{Name: "josh", Email: "josh@localhost"}
}
