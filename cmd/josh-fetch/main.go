// Command josh-fetch drives a fetch-spec file (spec §4.8/§6.4) against a
// single repository: for each line it fetches <remote>@<rev>, projects
// the result under <filter-spec>, and lands it on <target>.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joshproj/josh/internal/tracelog"
	"github.com/joshproj/josh/modules/strengthen"
	"github.com/joshproj/josh/store/gitcli"
)

func main() {
	repoFlag := flag.String("repo", ".", "path to the git repository")
	specPath := flag.String("spec", "", "path to the fetch-spec file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	tracelog.SetVerbose(*verbose)
	repoPath := strengthen.ExpandPath(*repoFlag)

	if *specPath == "" {
		fmt.Fprintln(os.Stderr, "josh-fetch: -spec is required")
		os.Exit(exitUsageError)
	}

	specFile, err := os.Open(*specPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "josh-fetch: %v\n", err)
		os.Exit(exitParseOrIOError)
	}
	defer specFile.Close()

	st := gitcli.New(repoPath)
	fetcher := newGitFetcher(repoPath)

	if err := run(context.Background(), st, repoPath, fetcher, specFile); err != nil {
		fmt.Fprintf(os.Stderr, "josh-fetch: %v\n", err)
		os.Exit(exitParseOrIOError)
	}
}

// Exit codes: non-zero on fatal I/O or parse errors (success falls off
// the end of main with the default exit code 0).
const (
	exitUsageError     = 64
	exitParseOrIOError = 1
)
