package main

import (
	"context"
	"io"

	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/internal/project"
	"github.com/joshproj/josh/internal/tracelog"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// run executes every line of a fetch-spec file against st: fetch
// <remote>@<rev>, project the resulting FETCH_HEAD oid under
// <filter-spec>, and land it on <target> (spec §4.8).
//
// Transactions are reused across lines that share the same (repo-path,
// filter-spec) key (spec §3 "Transaction" is keyed by project.Key), so a
// spec file repeating a filter across several targets only builds its
// ViewMap once.
func run(ctx context.Context, st store.Store, repoPath string, f Fetcher, specs io.Reader) error {
	lines, err := ParseSpecFile(specs)
	if err != nil {
		return err
	}

	txByKey := make(map[string]*project.Transaction)
	getTx := func(ff *filter.Filter) *project.Transaction {
		key := project.Key(repoPath, ff)
		if tx, ok := txByKey[key]; ok {
			return tx
		}
		tx := project.NewTransaction(st, "fetch", ff, project.NewCache())
		txByKey[key] = tx
		return tx
	}

	for _, line := range lines {
		fetchHead, err := f.Fetch(ctx, line.Remote, line.Rev)
		if err != nil {
			return err
		}

		tx := getTx(line.Filter)
		projector := project.NewProjector(tx)
		projected, ok, err := projector.Project(ctx, fetchHead)
		if err != nil {
			return err
		}
		if !ok {
			tracelog.Infof("%s: fetch_head %s projects to nothing under this filter, skipping", line.Raw, fetchHead)
			continue
		}

		targetRef := plumbing.NewBranchReferenceName(line.Target)
		if err := st.ReferenceSet(ctx, targetRef, projected, true, "josh-fetch: "+line.Raw); err != nil {
			return err
		}
		tracelog.Infof("%s: %s -> %s -> %s", line.Raw, line.Rev, fetchHead, projected)
	}
	return nil
}
