package plumbing

import (
	"strings"
)

// ReferenceName is a fully-qualified reference path, e.g. "refs/heads/main".
type ReferenceName string

const (
	refPrefix       = "refs/"
	refHeadPrefix   = refPrefix + "heads/"
	refTagPrefix    = refPrefix + "tags/"
	refNamespace    = refPrefix + "namespaces/"
	refJoshUpstream = refPrefix + "josh/upstream/"
	RefJoshMeta     = ReferenceName(refPrefix + "josh/meta")

	HEAD ReferenceName = "HEAD"
)

// NewBranchReferenceName returns the fully-qualified ref for a branch name.
func NewBranchReferenceName(name string) ReferenceName {
	return ReferenceName(refHeadPrefix + name)
}

// NewTagReferenceName returns the fully-qualified ref for a tag name.
func NewTagReferenceName(name string) ReferenceName {
	return ReferenceName(refTagPrefix + name)
}

func (r ReferenceName) String() string { return string(r) }

func (r ReferenceName) IsBranch() bool { return strings.HasPrefix(string(r), refHeadPrefix) }

func (r ReferenceName) IsTag() bool { return strings.HasPrefix(string(r), refTagPrefix) }

// Branch returns the short branch name and true if r is a branch ref.
func (r ReferenceName) Branch() (string, bool) {
	if b, ok := strings.CutPrefix(string(r), refHeadPrefix); ok && len(b) != 0 {
		return b, true
	}
	return "", false
}

// Namespaced qualifies ref into refs/namespaces/<ns>/<ref>, per §6.2.
func Namespaced(ns, ref string) ReferenceName {
	ref = strings.TrimPrefix(ref, "refs/")
	return ReferenceName(refNamespace + ns + "/refs/" + ref)
}

// NamespacedHEAD returns the HEAD pseudo-ref of a namespace.
func NamespacedHEAD(ns string) ReferenceName {
	return ReferenceName(refNamespace + ns + "/HEAD")
}

// EncodeRepoNamespace escapes slashes in a repository path into a
// namespace-safe component, per §6.2 "repo-ns encoding". Escaping uses "%2F"
// the way URL path segments do, since repo paths may themselves contain '%'.
func EncodeRepoNamespace(repoPath string) string {
	repoPath = strings.ReplaceAll(repoPath, "%", "%25")
	return strings.ReplaceAll(repoPath, "/", "%2F")
}

// DecodeRepoNamespace reverses EncodeRepoNamespace.
func DecodeRepoNamespace(ns string) string {
	ns = strings.ReplaceAll(ns, "%2F", "/")
	return strings.ReplaceAll(ns, "%25", "%")
}

// UpstreamMirrorRef returns refs/josh/upstream/<repo-ns>.git/refs/heads/<branch>.
func UpstreamMirrorRef(repoNS, branch string) ReferenceName {
	return ReferenceName(refJoshUpstream + repoNS + ".git/refs/heads/" + branch)
}

// UpstreamMirrorPrefix returns the glob prefix used to enumerate all
// mirrored repositories, per §4.7 Repository discovery.
func UpstreamMirrorPrefix() string { return refJoshUpstream }
