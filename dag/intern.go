package dag

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint is a content hash identifying a node's (kind, canonicalized
// arguments, parent ids) tuple, used by Intern to structurally dedupe
// nodes — the mechanism §4.F calls "the DAG deduplicates them via the
// sentinel's children": every ZeroC arising from "applying any op to a
// ZeroC yields another ZeroC at a cached LevelInfo" collapses onto a
// single node instead of being re-created per call site.
type Fingerprint [32]byte

// ComputeFingerprint computes a content hash over key (typically a canonical
// string encoding of an op's kind and fields) and a sequence of parent
// ids, so two structurally identical requests hash identically regardless
// of call order.
func ComputeFingerprint(key string, parents ...NodeID) Fingerprint {
	h := blake3.New()
	_, _ = h.Write([]byte(key))
	for _, p := range parents {
		var buf [8]byte
		for i := 0; i < 8; i++ {
			buf[i] = byte(p >> (8 * i))
		}
		_, _ = h.Write(buf[:])
	}
	var out Fingerprint
	copy(out[:], h.Sum(nil))
	return out
}

func (f Fingerprint) hex() string { return hex.EncodeToString(f[:]) }

// Intern returns the existing node for fingerprint if one was already
// created via Intern, or else calls build to construct one, records it as
// a child of Sentinel (keeping it reachable and out of the way of "real"
// data-flow parents), and caches it.
func (d *Dag[T]) Intern(fingerprint Fingerprint, build func() T) NodeID {
	key := fingerprint.hex()
	if id, ok := d.dedup[key]; ok {
		return id
	}
	id := d.addNode(build(), []NodeID{d.Sentinel})
	d.dedup[key] = id
	return id
}
