package dungeons

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sort"
	"sync/atomic"
)

// RawEntry is one record from the data source, tagged with where it came from.
type RawEntry struct {
	SourceID string
	Raw      []byte
}

// Snapshot is an immutable view of the catalog grouped by type.
type Snapshot struct {
	byType map[Type][]Descriptor
	digest string
}

func (s *Snapshot) Query(t Type) []Descriptor {
	if s == nil {
		return nil
	}
	src := s.byType[t]
	if len(src) == 0 {
		return nil
	}
	out := make([]Descriptor, len(src))
	copy(out, src)
	return out
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, ds := range s.byType {
		n += len(ds)
	}
	return n
}

// Counts returns the number of descriptors per type.
func (s *Snapshot) Counts() map[Type]int {
	out := map[Type]int{}
	if s == nil {
		return out
	}
	for t, ds := range s.byType {
		out[t] = len(ds)
	}
	return out
}

func (s *Snapshot) Digest() string {
	if s == nil {
		return ""
	}
	return s.digest
}

type Rejection struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

type Report struct {
	Accepted int          `json:"accepted"`
	Rejected []Rejection  `json:"rejected,omitempty"`
	Counts   map[Type]int `json:"counts"`
	Digest   string       `json:"digest"`
}

// Catalog publishes dungeon descriptor snapshots. Readers always see a
// complete snapshot; Reload swaps in a new one atomically.
type Catalog struct {
	cur atomic.Pointer[Snapshot]
	log *log.Logger
}

func NewCatalog(logger *log.Logger) *Catalog {
	c := &Catalog{log: logger}
	c.cur.Store(&Snapshot{byType: map[Type][]Descriptor{}})
	return c
}

func (c *Catalog) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}

// Reload validates every entry, drops the invalid ones and publishes the
// rest as the new snapshot. Zero valid entries publish an empty snapshot.
func (c *Catalog) Reload(entries []RawEntry) Report {
	next := &Snapshot{byType: map[Type][]Descriptor{}}
	var rep Report
	var concat bytes.Buffer
	for _, e := range entries {
		concat.Write(e.Raw)
		concat.WriteByte('\n')

		rec, err := decodeRecord(e.Raw)
		if err == nil {
			var d Descriptor
			d, err = rec.validate()
			if err == nil {
				next.byType[d.Type] = append(next.byType[d.Type], d)
				rep.Accepted++
				continue
			}
		}
		c.logf("dungeon catalog: skip %s: %v", e.SourceID, err)
		rep.Rejected = append(rep.Rejected, Rejection{SourceID: e.SourceID, Reason: err.Error()})
	}
	for t := range next.byType {
		ds := next.byType[t]
		sort.SliceStable(ds, func(i, j int) bool {
			if ds[i].Difficulty != ds[j].Difficulty {
				return ds[i].Difficulty < ds[j].Difficulty
			}
			return ds[i].StructureID < ds[j].StructureID
		})
	}
	sum := sha256.Sum256(concat.Bytes())
	next.digest = hex.EncodeToString(sum[:])

	c.cur.Store(next)

	rep.Counts = next.Counts()
	rep.Digest = next.digest
	c.logf("dungeon catalog: loaded %d valid entries (%d rejected) digest=%s", rep.Accepted, len(rep.Rejected), shortDigest(rep.Digest))
	return rep
}

func (c *Catalog) Snapshot() *Snapshot { return c.cur.Load() }

// Query returns the descriptors of one type; empty for unknown or depleted types.
func (c *Catalog) Query(t Type) []Descriptor { return c.cur.Load().Query(t) }

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
