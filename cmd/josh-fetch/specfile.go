package main

import (
	"bufio"
	"io"
	"strings"

	"github.com/joshproj/josh/internal/errs"
	"github.com/joshproj/josh/internal/filter"
)

// Line is one parsed entry of a fetch-spec file (spec §6.4):
// "[<target>:<remote>@<rev>]<filter-spec>".
type Line struct {
	Target string
	Remote string
	Rev    string
	Filter *filter.Filter
	Raw    string
}

// ParseSpecFile reads every non-blank, non-comment line of r through
// parseLine.
func ParseSpecFile(r io.Reader) ([]Line, error) {
	var lines []Line
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		l, err := parseLine(raw)
		if err != nil {
			return nil, errs.ParseError(lineNo, err.Error())
		}
		lines = append(lines, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// parseLine parses "[<target>:<remote>@<rev>]<filter-spec>".
func parseLine(raw string) (Line, error) {
	if !strings.HasPrefix(raw, "[") {
		return Line{}, errs.ParseError(0, "expected '[' to open target/remote/rev triple")
	}
	closeIdx := strings.Index(raw, "]")
	if closeIdx < 0 {
		return Line{}, errs.ParseError(0, "unterminated '[...]' triple")
	}
	head := raw[1:closeIdx]
	filterSpec := raw[closeIdx+1:]
	if filterSpec == "" {
		return Line{}, errs.ParseError(closeIdx+1, "missing filter-spec after ']'")
	}

	colon := strings.Index(head, ":")
	if colon < 0 {
		return Line{}, errs.ParseError(1, "expected '<target>:<remote>@<rev>'")
	}
	target := head[:colon]
	remoteRev := head[colon+1:]
	at := strings.LastIndex(remoteRev, "@")
	if at < 0 {
		return Line{}, errs.ParseError(colon+1, "expected '<remote>@<rev>'")
	}
	remote := remoteRev[:at]
	rev := remoteRev[at+1:]
	if target == "" || remote == "" || rev == "" {
		return Line{}, errs.ParseError(0, "target, remote, and rev must all be non-empty")
	}

	f, err := filter.Parse(filterSpec)
	if err != nil {
		return Line{}, err
	}
	return Line{Target: target, Remote: remote, Rev: rev, Filter: f, Raw: raw}, nil
}
