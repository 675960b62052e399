// Package archive implements the MAP-Elites structure (ModuleArchive) and the
// optimizer that evolves a seed module into one, per §3/§4.3.
package archive

import (
	"sync"

	"github.com/diogenesoftoronto/chrysalis-forge/phenotype"
	"github.com/diogenesoftoronto/chrysalis-forge/signature"
)

type (
	// Elite is the best-scoring module recorded so far for a bin.
	Elite struct {
		Score  float64
		Module signature.Module
		// Visits counts every Update call that landed in this bin, whether
		// or not it replaced the incumbent. Used by the optimizer to bias
		// parent-bin sampling toward under-explored bins.
		Visits int
	}

	// CloudPoint pairs an observed Phenotype with the module that produced
	// it, retained for k-NN dispatch by the selector.
	CloudPoint struct {
		Phenotype phenotype.Phenotype
		Module    signature.Module
	}

	// ModuleArchive is the MAP-Elites structure: one elite module per bin,
	// plus a continuous point-cloud for k-NN dispatch. Mutated only by the
	// optimizer through Update/Prune; readers take
	// consistent snapshots via Snapshot.
	ModuleArchive struct {
		mu         sync.RWMutex
		id         string
		signature  signature.Signature
		bins       map[phenotype.BinKey]Elite
		cloud      []CloudPoint
		defaultKey phenotype.BinKey
		hasDefault bool
	}

	// Snapshot is an immutable, point-in-time copy of a ModuleArchive's
	// contents, safe to read without holding any lock.
	Snapshot struct {
		ID         string
		Signature  signature.Signature
		Bins       map[phenotype.BinKey]Elite
		Cloud      []CloudPoint
		DefaultKey phenotype.BinKey
		HasDefault bool
	}
)

// New constructs an empty ModuleArchive for sig.
func New(id string, sig signature.Signature) *ModuleArchive {
	return &ModuleArchive{
		id:        id,
		signature: sig,
		bins:      make(map[phenotype.BinKey]Elite),
	}
}

// Update inserts mod as the elite of key if the bin is empty or score is
// strictly greater than the incumbent's score (ties go to the incumbent,
// §4.3 "update_archive!"). It always appends (phenotype, mod) to the point
// cloud regardless of whether it became the new elite, and recomputes
// default-key as the bin with the globally highest score (ties broken by
// insertion order — the first bin to reach the maximum score keeps the
// default).
func (a *ModuleArchive) Update(mod signature.Module, score float64, key phenotype.BinKey, p phenotype.Phenotype) {
	a.mu.Lock()
	defer a.mu.Unlock()

	incumbent, exists := a.bins[key]
	visits := incumbent.Visits + 1
	if !exists || score > incumbent.Score {
		a.bins[key] = Elite{Score: score, Module: mod, Visits: visits}
		if !a.hasDefault || score > a.bins[a.defaultKey].Score {
			a.defaultKey = key
			a.hasDefault = true
		}
	} else {
		incumbent.Visits = visits
		a.bins[key] = incumbent
	}
	a.cloud = append(a.cloud, CloudPoint{Phenotype: p, Module: mod})
}

// Prune enforces the point-cloud size cap described in §4.3: every module
// currently backing a bin is retained, and the remainder is sampled uniformly
// without replacement (via pick, an index-selection function supplied by the
// caller so behavior stays deterministic under test) down to maxSize. If the
// cloud is already at or below maxSize, Prune is a no-op.
func (a *ModuleArchive) Prune(maxSize int, pick func(n, k int) []int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if maxSize <= 0 || len(a.cloud) <= maxSize {
		return
	}

	backing := make(map[string]struct{}, len(a.bins))
	for _, elite := range a.bins {
		backing[elite.Module.ID] = struct{}{}
	}

	var kept, rest []CloudPoint
	for _, cp := range a.cloud {
		if _, ok := backing[cp.Module.ID]; ok {
			kept = append(kept, cp)
		} else {
			rest = append(rest, cp)
		}
	}

	remaining := maxSize - len(kept)
	if remaining <= 0 {
		a.cloud = kept
		return
	}
	if remaining >= len(rest) {
		a.cloud = append(kept, rest...)
		return
	}
	for _, idx := range pick(len(rest), remaining) {
		kept = append(kept, rest[idx])
	}
	a.cloud = kept
}

// Snapshot copies the bins map and takes a reference to the point-cloud
// slice under the archive's lock, then releases it — giving the selector a
// consistent, immutable view without holding the lock across its own work
// (§5 "Shared resource policy").
func (a *ModuleArchive) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	bins := make(map[phenotype.BinKey]Elite, len(a.bins))
	for k, v := range a.bins {
		bins[k] = v
	}
	return Snapshot{
		ID:         a.id,
		Signature:  a.signature,
		Bins:       bins,
		Cloud:      a.cloud,
		DefaultKey: a.defaultKey,
		HasDefault: a.hasDefault,
	}
}

// ID returns the archive identifier.
func (a *ModuleArchive) ID() string { return a.id }
