// Package gitcli is the production Store implementation (component A):
// it shells out to a real `git` binary's plumbing commands rather than
// reimplementing git's object format, per the core's explicit non-goal of
// never encoding packs or loose objects itself. The process-wrapping idiom
// (RunOpts, NewFromOptions, Command.Output/OneLine) is the teacher's own
// modules/command package.
package gitcli

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/modules/command"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// Store shells out to `git` against a single fixed repository path. One
// Store per repository; callers needing several repositories (e.g. to
// project across an upstream mirror tree, §6.2) construct one Store per
// path.
type Store struct {
	repoPath string
}

var _ store.Store = (*Store)(nil)

func New(repoPath string) *Store {
	return &Store{repoPath: repoPath}
}

func (s *Store) git(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	opts := &command.RunOpts{RepoPath: s.repoPath}
	if stdin != nil {
		opts.Stdin = bytes.NewReader(stdin)
	}
	cmd := command.NewFromOptions(ctx, opts, "git", args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, errs.Store(err, "git %s: %s", strings.Join(args, " "), command.FromError(err))
	}
	return out, nil
}

func (s *Store) FindBlob(ctx context.Context, oid plumbing.Oid) ([]byte, error) {
	out, err := s.git(ctx, nil, "cat-file", "blob", oid.String())
	if err != nil {
		return nil, notFoundIfMissing(err, "blob", oid.String())
	}
	return out, nil
}

func (s *Store) WriteBlob(ctx context.Context, content []byte) (plumbing.Oid, error) {
	out, err := s.git(ctx, content, "hash-object", "-w", "--stdin")
	if err != nil {
		return plumbing.ZeroOid, err
	}
	return parseOidLine(out)
}

func (s *Store) FindTree(ctx context.Context, oid plumbing.Oid) (*store.Tree, error) {
	out, err := s.git(ctx, nil, "cat-file", "-p", oid.String())
	if err != nil {
		return nil, notFoundIfMissing(err, "tree", oid.String())
	}
	entries, err := parseTreeListing(out)
	if err != nil {
		return nil, err
	}
	return &store.Tree{Oid: oid, Entries: entries}, nil
}

// parseTreeListing parses `git cat-file -p <tree>` output: lines of
// "<mode> <type> <oid>\t<name>".
func parseTreeListing(out []byte) ([]store.TreeEntry, error) {
	var entries []store.TreeEntry
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			return nil, errs.Encoding("malformed tree entry: %q", line)
		}
		name := line[tab+1:]
		fields := strings.SplitN(line[:tab], " ", 3)
		if len(fields) != 3 {
			return nil, errs.Encoding("malformed tree entry: %q", line)
		}
		mode, err := strconv.ParseUint(fields[0], 8, 32)
		if err != nil {
			return nil, errs.Encoding("malformed tree mode %q: %v", fields[0], err)
		}
		oid, ok := plumbing.ParseOid(fields[2])
		if !ok {
			return nil, errs.Encoding("malformed tree entry oid %q", fields[2])
		}
		entries = append(entries, store.TreeEntry{Name: name, Mode: store.FileMode(mode), Oid: oid})
	}
	return entries, nil
}

func (s *Store) BuildTree(ctx context.Context, entries []store.TreeEntry) (plumbing.Oid, error) {
	sorted := make([]store.TreeEntry, len(entries))
	copy(sorted, entries)
	sortTreeEntries(sorted)

	var buf bytes.Buffer
	for _, e := range sorted {
		kind := "blob"
		if e.Mode.IsDir() {
			kind = "tree"
		} else if e.Mode.IsSubmodule() {
			kind = "commit"
		}
		fmt.Fprintf(&buf, "%06o %s %s\t%s\n", uint32(e.Mode), kind, e.Oid, e.Name)
	}
	out, err := s.git(ctx, buf.Bytes(), "mktree")
	if err != nil {
		return plumbing.ZeroOid, err
	}
	return parseOidLine(out)
}

func sortTreeEntries(entries []store.TreeEntry) {
	less := func(i, j int) bool { return subtreeName(entries[i]) < subtreeName(entries[j]) }
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func subtreeName(e store.TreeEntry) string {
	if e.Mode.IsDir() {
		return e.Name + "/"
	}
	return e.Name + "\x00"
}

func (s *Store) EmptyTreeOid() plumbing.Oid {
	return plumbing.HashObject("tree", nil)
}

func (s *Store) FindCommit(ctx context.Context, oid plumbing.Oid) (*store.Commit, error) {
	out, err := s.git(ctx, nil, "cat-file", "commit", oid.String())
	if err != nil {
		return nil, notFoundIfMissing(err, "commit", oid.String())
	}
	c, err := decodeCommit(out)
	if err != nil {
		return nil, err
	}
	c.Oid = oid
	return c, nil
}

// WriteCommit hashes and writes the commit's canonical byte encoding
// directly (via `git hash-object -w -t commit`) rather than shelling out to
// `git commit-tree`, so that ExtraHeaders (e.g. "gpgsig") round-trip
// byte-for-byte — commit-tree has no flag for arbitrary extra headers,
// and real git commits are content-addressed, so hashing the exact same
// bytes as the original naturally reproduces its oid (the signature
// preservation rule of §4.4 3g falls out of content addressing, not a
// special case this method needs to implement itself).
func (s *Store) WriteCommit(ctx context.Context, req store.CommitRequest) (plumbing.Oid, error) {
	if !req.LikelySame.IsZero() {
		if existing, err := s.FindCommit(ctx, req.LikelySame); err == nil && store.SameCommit(req, existing) {
			return req.LikelySame, nil
		}
	}
	raw := store.EncodeCommit(req)
	out, err := s.git(ctx, raw, "hash-object", "-w", "-t", "commit", "--stdin")
	if err != nil {
		return plumbing.ZeroOid, err
	}
	return parseOidLine(out)
}

func (s *Store) HashObject(ctx context.Context, kind string, content []byte) (plumbing.Oid, error) {
	out, err := s.git(ctx, content, "hash-object", "-t", kind, "--stdin")
	if err != nil {
		return plumbing.ZeroOid, err
	}
	return parseOidLine(out)
}

func (s *Store) ReferenceSet(ctx context.Context, name plumbing.ReferenceName, oid plumbing.Oid, force bool, reflogMsg string) error {
	args := []string{"update-ref"}
	if reflogMsg != "" {
		args = append(args, "-m", reflogMsg)
	}
	args = append(args, name.String(), oid.String())
	_, err := s.git(ctx, nil, args...)
	return err
}

func (s *Store) ReferenceTarget(ctx context.Context, name plumbing.ReferenceName) (plumbing.Oid, error) {
	out, err := s.git(ctx, nil, "rev-parse", "--verify", name.String())
	if err != nil {
		return plumbing.ZeroOid, notFoundIfMissing(err, "reference", name.String())
	}
	return parseOidLine(out)
}

func (s *Store) ReferencesGlob(ctx context.Context, pattern string) ([]plumbing.ReferenceName, error) {
	out, err := s.git(ctx, nil, "for-each-ref", "--format=%(refname)", pattern)
	if err != nil {
		return nil, err
	}
	var names []plumbing.ReferenceName
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		names = append(names, plumbing.ReferenceName(line))
	}
	return names, nil
}

func (s *Store) RevparseSingle(ctx context.Context, spec string) (plumbing.Oid, error) {
	out, err := s.git(ctx, nil, "rev-parse", "--verify", spec+"^{commit}")
	if err != nil {
		return plumbing.ZeroOid, notFoundIfMissing(err, "revision", spec)
	}
	return parseOidLine(out)
}

func (s *Store) RevWalk(ctx context.Context, opts store.RevWalkOptions) ([]plumbing.Oid, error) {
	args := []string{"rev-list"}
	switch opts.Sort {
	case store.SortReverse:
		args = append(args, "--topo-order", "--reverse")
	default:
		args = append(args, "--topo-order")
	}
	for _, p := range opts.Push {
		args = append(args, p.String())
	}
	for _, h := range opts.Hide {
		args = append(args, "^"+h.String())
	}
	out, err := s.git(ctx, nil, args...)
	if err != nil {
		return nil, err
	}
	var oids []plumbing.Oid
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line == "" {
			continue
		}
		oid, ok := plumbing.ParseOid(line)
		if !ok {
			return nil, errs.Encoding("rev-list produced malformed oid %q", line)
		}
		oids = append(oids, oid)
	}
	return oids, nil
}

func (s *Store) SignatureDefault(ctx context.Context) store.Signature {
	name, _ := s.git(ctx, nil, "config", "user.name")
	email, _ := s.git(ctx, nil, "config", "user.email")
	sig := store.Signature{
		Name:  strings.TrimSpace(string(name)),
		Email: strings.TrimSpace(string(email)),
		When:  time.Now(),
	}
	if sig.Name == "" {
		sig.Name = "josh"
	}
	if sig.Email == "" {
		sig.Email = "josh@localhost"
	}
	return sig
}

func parseOidLine(out []byte) (plumbing.Oid, error) {
	line := strings.TrimSpace(string(out))
	oid, ok := plumbing.ParseOid(line)
	if !ok {
		return plumbing.ZeroOid, errs.Encoding("git produced malformed oid %q", line)
	}
	return oid, nil
}

func notFoundIfMissing(err error, kind string, id string) error {
	if errs.Of(err) == errs.KindStore {
		return errs.NotFound("%s %s not found", kind, id)
	}
	return err
}
