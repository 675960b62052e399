// Package archivestore persists and caches ModuleArchive snapshots in the
// stable JSON format from §6 ("Archive persistence format"):
//
//	{"task_type": ..., "archive": {bin_key: {score, pattern}}, "point_cloud": [...], "default_id": ...}
//
// Readers tolerate unknown fields, matching the teacher's codec leniency.
package archivestore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/diogenesoftoronto/chrysalis-forge/archive"
	"github.com/diogenesoftoronto/chrysalis-forge/phenotype"
	"github.com/diogenesoftoronto/chrysalis-forge/signature"
)

type (
	// Pattern is the module-archive flavor of the "pattern" record from §6:
	// {id, signature, strategy, instructions, demos, params}.
	Pattern struct {
		ID           string              `json:"id"`
		Signature    signature.Signature `json:"signature"`
		Strategy     signature.Strategy  `json:"strategy"`
		Instructions string              `json:"instructions"`
		Demos        []signature.Demo    `json:"demos,omitempty"`
		Params       signature.Params    `json:"params,omitempty"`
	}

	// BinEntry is one {score, pattern} value under a bin key in the archive.
	BinEntry struct {
		Score   float64 `json:"score"`
		Pattern Pattern `json:"pattern"`
	}

	// CloudEntry is one point-cloud element: {phenotype, pattern}.
	CloudEntry struct {
		Phenotype phenotype.Phenotype `json:"phenotype"`
		Pattern   Pattern             `json:"pattern"`
	}

	// Document is the full §6 wire format for a module archive.
	Document struct {
		TaskType   string              `json:"task_type"`
		Archive    map[string]BinEntry `json:"archive"`
		PointCloud []CloudEntry        `json:"point_cloud"`
		DefaultID  string              `json:"default_id,omitempty"`
	}

	// Store reads and writes a named archive document. Implementations must
	// tolerate documents containing fields they do not recognize.
	Store interface {
		Save(taskType string, doc Document) error
		Load(taskType string) (Document, bool, error)
	}
)

// binKeySeparator joins a BinKey's three dimensions into the document's
// string map key. It is never produced by a user-facing bin label, so a
// simple join is collision-free.
const binKeySeparator = "|"

// EncodeBinKey renders a BinKey as the string map key used in Document.Archive.
func EncodeBinKey(k phenotype.BinKey) string {
	return strings.Join([]string{string(k.Cost), string(k.Latency), string(k.Usage)}, binKeySeparator)
}

// DecodeBinKey parses a string produced by EncodeBinKey back into a BinKey.
func DecodeBinKey(s string) (phenotype.BinKey, error) {
	parts := strings.Split(s, binKeySeparator)
	if len(parts) != 3 {
		return phenotype.BinKey{}, fmt.Errorf("archivestore: malformed bin key %q", s)
	}
	return phenotype.BinKey{
		Cost:    phenotype.CostBin(parts[0]),
		Latency: phenotype.LatencyBin(parts[1]),
		Usage:   phenotype.UsageBin(parts[2]),
	}, nil
}

// ToDocument converts an archive Snapshot into the §6 wire Document.
func ToDocument(taskType string, snap archive.Snapshot) Document {
	doc := Document{
		TaskType:   taskType,
		Archive:    make(map[string]BinEntry, len(snap.Bins)),
		PointCloud: make([]CloudEntry, len(snap.Cloud)),
	}
	for key, elite := range snap.Bins {
		doc.Archive[EncodeBinKey(key)] = BinEntry{
			Score:   elite.Score,
			Pattern: toPattern(elite.Module),
		}
		if snap.HasDefault && key == snap.DefaultKey {
			doc.DefaultID = elite.Module.ID
		}
	}
	for i, cp := range snap.Cloud {
		doc.PointCloud[i] = CloudEntry{Phenotype: cp.Phenotype, Pattern: toPattern(cp.Module)}
	}
	return doc
}

func toPattern(m signature.Module) Pattern {
	return Pattern{
		ID:           m.ID,
		Signature:    m.Signature,
		Strategy:     m.Strategy,
		Instructions: m.Instructions,
		Demos:        m.Demos,
		Params:       m.Params,
	}
}

func fromPattern(p Pattern) signature.Module {
	return signature.Module{
		ID:           p.ID,
		Signature:    p.Signature,
		Strategy:     p.Strategy,
		Instructions: p.Instructions,
		Demos:        p.Demos,
		Params:       p.Params,
	}
}

// FromDocument rebuilds cloud points and bin elites from a Document. It does
// not reconstruct a live *archive.ModuleArchive (callers that need one should
// replay Update calls through archive.New); it returns the raw pieces so
// callers can choose how to rehydrate.
func FromDocument(doc Document) (bins map[phenotype.BinKey]archive.Elite, cloud []archive.CloudPoint, err error) {
	bins = make(map[phenotype.BinKey]archive.Elite, len(doc.Archive))
	for keyStr, entry := range doc.Archive {
		key, err := DecodeBinKey(keyStr)
		if err != nil {
			return nil, nil, err
		}
		bins[key] = archive.Elite{Score: entry.Score, Module: fromPattern(entry.Pattern)}
	}
	cloud = make([]archive.CloudPoint, len(doc.PointCloud))
	for i, ce := range doc.PointCloud {
		cloud[i] = archive.CloudPoint{Phenotype: ce.Phenotype, Module: fromPattern(ce.Pattern)}
	}
	return bins, cloud, nil
}

// Marshal renders doc as the canonical §6 JSON bytes.
func Marshal(doc Document) ([]byte, error) {
	return json.Marshal(doc)
}

// Unmarshal parses the canonical §6 JSON bytes, tolerating unknown fields
// (the default behavior of encoding/json).
func Unmarshal(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("archivestore: decode document: %w", err)
	}
	return doc, nil
}
