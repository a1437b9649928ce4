package store

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// EncodeTree renders entries in git's canonical tree format, sorted in
// "subtree order" (mirroring the teacher's object.SubtreeOrder,
// modules/zeta/object/tree.go): directories sort as if their name ended in
// "/" and files as if it ended in "\0", the ordering git's own fsck
// enforces.
func EncodeTree(entries []TreeEntry) []byte {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return subtreeName(sorted[i]) < subtreeName(sorted[j])
	})
	var buf bytes.Buffer
	for _, e := range sorted {
		fmt.Fprintf(&buf, "%o %s", uint32(e.Mode), e.Name)
		buf.WriteByte(0)
		buf.Write(e.Oid[:])
	}
	return buf.Bytes()
}

func subtreeName(e TreeEntry) string {
	if e.Mode.IsDir() {
		return e.Name + "/"
	}
	return e.Name + "\x00"
}

// EncodeCommit renders a commit object in git's canonical format.
func EncodeCommit(c CommitRequest) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", encodeSignature(c.Author))
	fmt.Fprintf(&buf, "committer %s\n", encodeSignature(c.Committer))
	for _, h := range c.ExtraHeaders {
		fmt.Fprintf(&buf, "%s %s\n", h.K, strings.ReplaceAll(h.V, "\n", "\n "))
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

func encodeSignature(s Signature) string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When.Unix(), s.When.Format("-0700"))
}

// SameCommit reports whether writing `req` would reproduce an existing
// commit `existing` byte-for-byte: same tree, same parent sequence, same
// message, same author/committer. This is the signature-preservation test
// of §4.4 3g / §4.5 step 5, shared by every Store implementation so the
// invariant can't drift between gitcli and memstore.
func SameCommit(req CommitRequest, existing *Commit) bool {
	if existing == nil {
		return false
	}
	if existing.Tree != req.Tree {
		return false
	}
	if len(existing.Parents) != len(req.Parents) {
		return false
	}
	for i := range existing.Parents {
		if existing.Parents[i] != req.Parents[i] {
			return false
		}
	}
	if existing.Message != req.Message {
		return false
	}
	if existing.Author != req.Author || existing.Committer != req.Committer {
		return false
	}
	if len(existing.ExtraHeaders) != len(req.ExtraHeaders) {
		return false
	}
	for i := range existing.ExtraHeaders {
		if existing.ExtraHeaders[i] != req.ExtraHeaders[i] {
			return false
		}
	}
	return true
}
