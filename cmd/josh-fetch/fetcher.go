package main

import (
	"context"
	"strings"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/modules/command"
	"github.com/joshproj/josh/plumbing"
)

// Fetcher resolves <remote>@<rev> to the oid git fetch left at
// FETCH_HEAD. It is an injected collaborator so the projection pipeline
// stays independent of any particular transport (spec §4.8 "the shell
// wrapper that invokes git fetch stays an external collaborator").
type Fetcher interface {
	Fetch(ctx context.Context, remote, rev string) (plumbing.Oid, error)
}

// gitFetcher shells to the real `git fetch`, the teacher's own process-
// wrapping idiom (modules/command), then reads back FETCH_HEAD.
type gitFetcher struct {
	repoPath string
}

func newGitFetcher(repoPath string) *gitFetcher { return &gitFetcher{repoPath: repoPath} }

func (f *gitFetcher) Fetch(ctx context.Context, remote, rev string) (plumbing.Oid, error) {
	opts := &command.RunOpts{RepoPath: f.repoPath}
	fetchCmd := command.NewFromOptions(ctx, opts, "git", "fetch", remote, rev)
	if err := fetchCmd.RunEx(); err != nil {
		return plumbing.ZeroOid, errs.Store(err, "git fetch %s %s: %s", remote, rev, command.FromError(err))
	}

	revParseCmd := command.NewFromOptions(ctx, opts, "git", "rev-parse", "FETCH_HEAD")
	out, err := revParseCmd.OneLine()
	if err != nil {
		return plumbing.ZeroOid, errs.Store(err, "git rev-parse FETCH_HEAD: %s", command.FromError(err))
	}
	oid, ok := plumbing.ParseOid(strings.TrimSpace(out))
	if !ok {
		return plumbing.ZeroOid, errs.Encoding("FETCH_HEAD did not resolve to a valid oid: %q", out)
	}
	return oid, nil
}
