// Package meta is the marker/metadata overlay (component F, spec §4.6): it
// lets external callers attach structured JSON annotations to a (commit,
// topic, path) triple, stored as sorted newline-separated records on a
// dedicated ref.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/treeproj"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// Record is one parsed marker line: the content-addressed oid of its
// canonical JSON value, and the value itself.
type Record struct {
	Oid   plumbing.Oid
	Value json.RawMessage
}

// Entry is one (path, data) pair passed to Write: data is a list of raw
// JSON strings to attach at path under the call's topic.
type Entry struct {
	Path string
	Data []string
}

// Overlay reads and writes marker records on a single ref (normally
// refs/josh/meta, optionally namespaced per transaction, spec §6.2).
type Overlay struct {
	st  store.Store
	tr  *treeproj.Transformer
	ref plumbing.ReferenceName
}

func New(st store.Store, ref plumbing.ReferenceName) *Overlay {
	return &Overlay{st: st, tr: treeproj.New(st), ref: ref}
}

// markerPath renders <topic>/~/<c[0:2]>/<c[2:5]>/<c[5:9]>/<c>/<path> (spec
// §6.3).
func markerPath(topic string, commit plumbing.Oid, path string) string {
	c := commit.String()
	return fmt.Sprintf("%s/~/%s/%s/%s/%s/%s", topic, c[0:2], c[2:5], c[5:9], c, path)
}

// canonicalJSON parses raw and re-renders it with encoding/json's
// deterministic map-key ordering, so that two syntactically different but
// semantically equal JSON strings hash to the same marker oid (spec
// property 14).
func canonicalJSON(raw string) ([]byte, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, errs.ParseError(0, fmt.Sprintf("invalid marker JSON: %v", err))
	}
	return json.Marshal(v)
}

// formatRecord renders raw as "<blob_oid>:<canonical_json>" (spec §4.6
// step 1 / §6.3).
func formatRecord(raw string) (string, error) {
	canon, err := canonicalJSON(raw)
	if err != nil {
		return "", err
	}
	oid := plumbing.HashObject("blob", canon)
	return oid.String() + ":" + string(canon), nil
}

func parseRecords(content []byte) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimRight(string(content), "\n"), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// dedupSort sorts lines lexicographically and removes duplicates (spec
// §4.6 step 2 / property 13).
func dedupSort(lines []string) []string {
	sort.Strings(lines)
	out := lines[:0]
	var prev string
	for i, l := range lines {
		if i == 0 || l != prev {
			out = append(out, l)
		}
		prev = l
	}
	return out
}

// Write attaches entries to commitOid under topic: for each entry, new
// records are unioned with any already stored at that path, sorted, and
// deduplicated (spec §4.6 "Write").
func (o *Overlay) Write(ctx context.Context, commitOid plumbing.Oid, topic string, entries []Entry) (plumbing.Oid, error) {
	head, err := o.st.ReferenceTarget(ctx, o.ref)
	var tree plumbing.Oid
	var parents []plumbing.Oid
	switch {
	case err == nil:
		headCommit, err := o.st.FindCommit(ctx, head)
		if err != nil {
			return plumbing.ZeroOid, err
		}
		tree = headCommit.Tree
		parents = []plumbing.Oid{head}
	case errs.Of(err) == errs.KindNotFound:
		tree = o.st.EmptyTreeOid()
	default:
		return plumbing.ZeroOid, err
	}

	for _, e := range entries {
		p := markerPath(topic, commitOid, e.Path)
		existing, err := o.tr.ReadBlobAtPath(ctx, tree, p)
		var lines []string
		switch {
		case err == nil:
			lines = parseRecords(existing)
		case errs.Of(err) == errs.KindNotFound:
			lines = nil
		default:
			return plumbing.ZeroOid, err
		}
		for _, raw := range e.Data {
			rec, err := formatRecord(raw)
			if err != nil {
				return plumbing.ZeroOid, err
			}
			lines = append(lines, rec)
		}
		lines = dedupSort(lines)

		blob, err := o.st.WriteBlob(ctx, []byte(strings.Join(lines, "\n")+"\n"))
		if err != nil {
			return plumbing.ZeroOid, err
		}
		tree, err = o.tr.Insert(ctx, tree, p, blob, store.ModeFile)
		if err != nil {
			return plumbing.ZeroOid, err
		}
	}

	sig := o.st.SignatureDefault(ctx)
	newOid, err := o.st.WriteCommit(ctx, store.CommitRequest{
		Author:    sig,
		Committer: sig,
		Message:   "josh: meta " + topic,
		Tree:      tree,
		Parents:   parents,
	})
	if err != nil {
		return plumbing.ZeroOid, err
	}
	if err := o.st.ReferenceSet(ctx, o.ref, newOid, true, "josh: meta "+topic); err != nil {
		return plumbing.ZeroOid, err
	}
	return newOid, nil
}

// resolveCanonicalPath remaps a path observed under a (possibly non-Nop)
// filtered view back onto the canonical path markers are always stored
// under (spec §4.6 "Read": "if the current filter is not Nop, first remap
// path via original_path").
func (o *Overlay) resolveCanonicalPath(ctx context.Context, f *filter.Filter, originalTree plumbing.Oid, projectedPath string) (string, error) {
	if f.IsNop() {
		return projectedPath, nil
	}
	return o.tr.OriginalPath(ctx, f, originalTree, projectedPath)
}

// Data reads the marker records for (originalCommit, topic, projectedPath)
// under filter f (spec §4.6 "Read (meta.data, meta.count)"). Records whose
// JSON is syntactically invalid are skipped, not errored (spec §6.3).
func (o *Overlay) Data(ctx context.Context, f *filter.Filter, originalCommit, originalTree plumbing.Oid, topic, projectedPath string) ([]Record, error) {
	canonicalPath, err := o.resolveCanonicalPath(ctx, f, originalTree, projectedPath)
	if err != nil {
		return nil, err
	}
	head, err := o.st.ReferenceTarget(ctx, o.ref)
	if err != nil {
		if errs.Of(err) == errs.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	headCommit, err := o.st.FindCommit(ctx, head)
	if err != nil {
		return nil, err
	}
	content, err := o.tr.ReadBlobAtPath(ctx, headCommit.Tree, markerPath(topic, originalCommit, canonicalPath))
	if err != nil {
		if errs.Of(err) == errs.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeRecords(content), nil
}

func decodeRecords(content []byte) []Record {
	var out []Record
	for _, line := range parseRecords(content) {
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		oid, ok := plumbing.ParseOid(line[:colon])
		if !ok {
			continue
		}
		raw := json.RawMessage(line[colon+1:])
		if !json.Valid(raw) {
			continue
		}
		out = append(out, Record{Oid: oid, Value: raw})
	}
	return out
}

// Count returns the total record line-count across every marker blob in the
// subtree rooted at (topic, originalCommit, projectedPath) under filter f
// (spec §4.6 "count"). Non-Nop filters remap the path exactly as Data does.
func (o *Overlay) Count(ctx context.Context, f *filter.Filter, originalCommit, originalTree plumbing.Oid, topic, projectedPath string) (int, error) {
	canonicalPath, err := o.resolveCanonicalPath(ctx, f, originalTree, projectedPath)
	if err != nil {
		return 0, err
	}
	head, err := o.st.ReferenceTarget(ctx, o.ref)
	if err != nil {
		if errs.Of(err) == errs.KindNotFound {
			return 0, nil
		}
		return 0, err
	}
	headCommit, err := o.st.FindCommit(ctx, head)
	if err != nil {
		return 0, err
	}
	root := markerPath(topic, originalCommit, canonicalPath)
	sub, mode, err := o.tr.ResolvePath(ctx, headCommit.Tree, root)
	if err != nil {
		if errs.Of(err) == errs.KindNotFound {
			return 0, nil
		}
		return 0, err
	}
	if !mode.IsDir() {
		content, err := o.st.FindBlob(ctx, sub)
		if err != nil {
			return 0, err
		}
		return len(parseRecords(content)), nil
	}
	return o.countTree(ctx, sub)
}

func (o *Overlay) countTree(ctx context.Context, treeOid plumbing.Oid) (int, error) {
	tree, err := o.st.FindTree(ctx, treeOid)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range tree.Entries {
		if e.Mode.IsDir() {
			n, err := o.countTree(ctx, e.Oid)
			if err != nil {
				return 0, err
			}
			total += n
			continue
		}
		blob, err := o.st.FindBlob(ctx, e.Oid)
		if err != nil {
			return 0, err
		}
		total += len(parseRecords(blob))
	}
	return total, nil
}
