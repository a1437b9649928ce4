package project

import (
	"strings"
	"sync"

	"github.com/joshproj/josh/internal/filter"
	"github.com/joshproj/josh/plumbing"
	"github.com/joshproj/josh/store"
)

// Transaction is a short-lived handle wrapping the repository store and a
// (repo, filter)-keyed cache (spec §3 "Transaction"). It is the unit of
// concurrency control for the cache: the whole transaction is exclusively
// locked for the duration of a single projection or unapply call (spec §5
// — a single mutex guards readers and writers alike, since the per-call
// work is short relative to the store I/O it wraps).
type Transaction struct {
	mu sync.Mutex

	st     store.Store
	ns     string
	filter *filter.Filter
	cache  *Cache
}

// NewTransaction constructs a transaction keyed by (repo, filter); ns
// scopes the refs this transaction reads/writes under
// refs/namespaces/<ns>/... (spec §6.2). Mis-keying a transaction to the
// wrong cache is a defect the caller must avoid (spec §9 "Global state").
func NewTransaction(st store.Store, ns string, f *filter.Filter, cache *Cache) *Transaction {
	return &Transaction{st: st, ns: ns, filter: f, cache: cache}
}

// Store returns the underlying repository store adapter.
func (tx *Transaction) Store() store.Store { return tx.st }

// Filter returns the filter this transaction projects under.
func (tx *Transaction) Filter() *filter.Filter { return tx.filter }

// Cache returns the ViewMap this transaction owns.
func (tx *Transaction) Cache() *Cache { return tx.cache }

// Refname qualifies ref into refs/namespaces/<ns>/<ref>.
func (tx *Transaction) Refname(ref string) plumbing.ReferenceName {
	return plumbing.Namespaced(tx.ns, ref)
}

// Namespace returns the transaction's namespace string.
func (tx *Transaction) Namespace() string { return tx.ns }

// Lock acquires the transaction's exclusive lock. Callers must Unlock
// when the projection or unapply call completes.
func (tx *Transaction) Lock() { tx.mu.Lock() }

// Unlock releases the transaction's exclusive lock.
func (tx *Transaction) Unlock() { tx.mu.Unlock() }

// Key returns the (repo_path, filter_spec) identity a transaction is
// keyed by, for callers building a transaction registry/pool.
func Key(repoPath string, f *filter.Filter) string {
	var b strings.Builder
	b.WriteString(repoPath)
	b.WriteByte('\x00')
	b.WriteString(filter.Spec(f))
	return b.String()
}
