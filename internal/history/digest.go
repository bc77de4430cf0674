package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/roach88/loadorder/internal/plugin"
)

// DomainState prefixes state digests. The version suffix leaves room for a
// different encoding later.
const DomainState = "loadorder/state/v1"

// digestDoc is the hashed form of a state. Field order is fixed by the
// struct, so encoding/json output is stable.
type digestDoc struct {
	LoadOrder []string `json:"load_order"`
	Active    []string `json:"active"`
}

// StateDigest returns the content digest of a load order and active set.
//
// Names are compared by plugin.Key, so states that differ only in filename
// case hash the same. The active set is unordered. Format:
// SHA256(domain + 0x00 + json).
func StateDigest(order, active []string) string {
	doc := digestDoc{
		LoadOrder: make([]string, len(order)),
		Active:    make([]string, len(active)),
	}
	for i, n := range order {
		doc.LoadOrder[i] = plugin.Key(n)
	}
	for i, n := range active {
		doc.Active[i] = plugin.Key(n)
	}
	slices.Sort(doc.Active)

	// Marshal cannot fail on string slices.
	data, _ := json.Marshal(doc)

	h := sha256.New()
	h.Write([]byte(DomainState))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ShortDigest returns the first 12 hex digits of a digest, for display.
func ShortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
