// Package plumbing defines the object-identity primitives shared by every
// layer of the projection engine: the opaque, content-addressed Oid and
// reference-name helpers (§3 "Object identity", §6.2 "Reference layout").
package plumbing

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strconv"
)

// OidSize is 160 bits, matching real git object identifiers. The spec fixes
// this width, so hashing uses crypto/sha1 directly rather than a
// third-party hash package: this is git's actual on-the-wire algorithm, not
// a convenience choice (see DESIGN.md).
const OidSize = 20

// Oid is an opaque content address. The zero value is the sentinel
// "zero oid" used throughout the spec (e.g. as the parent of a root commit).
type Oid [OidSize]byte

// ZeroOid is the sentinel zero-value oid.
var ZeroOid Oid

// NewOid decodes a hex string into an Oid. Malformed input yields the zero
// Oid; callers that must distinguish malformed input use ParseOid.
func NewOid(hex string) Oid {
	o, _ := ParseOid(hex)
	return o
}

// ParseOid decodes a hex string into an Oid, reporting whether it was a
// well-formed 40-character hex string.
func ParseOid(s string) (Oid, bool) {
	var o Oid
	if len(s) != OidSize*2 {
		return o, false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return o, false
	}
	copy(o[:], b)
	return o, true
}

// HashObject computes the Oid of a piece of object content under git's
// loose-object framing: "<kind> <len>\x00<content>".
func HashObject(kind string, content []byte) Oid {
	h := sha1.New()
	h.Write([]byte(kind))
	h.Write([]byte{' '})
	h.Write([]byte(strconv.Itoa(len(content))))
	h.Write([]byte{0})
	h.Write(content)
	var o Oid
	copy(o[:], h.Sum(nil))
	return o
}

func (o Oid) String() string {
	return hex.EncodeToString(o[:])
}

func (o Oid) IsZero() bool {
	return o == ZeroOid
}

func (o Oid) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Oid) UnmarshalText(text []byte) error {
	parsed, ok := ParseOid(string(text))
	if !ok {
		*o = ZeroOid
		return nil
	}
	*o = parsed
	return nil
}

// OidSlice attaches sort.Interface to []Oid in byte order, mirroring the
// teacher's HashSlice (modules/plumbing/hash.go).
type OidSlice []Oid

func (s OidSlice) Len() int           { return len(s) }
func (s OidSlice) Less(i, j int) bool { return bytes.Compare(s[i][:], s[j][:]) < 0 }
func (s OidSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// SortOids sorts oids in increasing byte order.
func SortOids(oids []Oid) { sort.Sort(OidSlice(oids)) }
