package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// flatIndex is an exact inner-product nearest-neighbor structure: a dense
// list of unit-length vectors scanned brute-force per query. Position in the
// list is the document index.
type flatIndex struct {
	dim  int
	vecs [][]float32
}

const flatIndexVersion = 1

var flatIndexMagic = [4]byte{'V', 'C', 'I', 'X'}

func newFlatIndex(dim int) *flatIndex {
	return &flatIndex{dim: dim}
}

func (ix *flatIndex) count() int { return len(ix.vecs) }

func (ix *flatIndex) add(vec []float32) error {
	if len(vec) != ix.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vec), ix.dim)
	}
	ix.vecs = append(ix.vecs, vec)
	return nil
}

type flatHit struct {
	Position int
	Score    float64
}

// search returns the topK highest inner products against query, descending.
// topK is capped at the document count.
func (ix *flatIndex) search(query []float32, topK int) ([]flatHit, error) {
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), ix.dim)
	}
	if topK > len(ix.vecs) {
		topK = len(ix.vecs)
	}
	if topK <= 0 {
		return nil, nil
	}
	hits := make([]flatHit, len(ix.vecs))
	for i, vec := range ix.vecs {
		var dot float64
		for j, v := range vec {
			dot += float64(v) * float64(query[j])
		}
		hits[i] = flatHit{Position: i, Score: dot}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	return hits[:topK], nil
}

// writeTo serializes the index: magic, version, dim, count, then float32
// rows little-endian.
func (ix *flatIndex) writeTo(w io.Writer) error {
	if _, err := w.Write(flatIndexMagic[:]); err != nil {
		return err
	}
	header := []uint32{flatIndexVersion, uint32(ix.dim), uint32(len(ix.vecs))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, vec := range ix.vecs {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return err
		}
	}
	return nil
}

func readFlatIndex(r io.Reader) (*flatIndex, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read index header: %w", err)
	}
	if magic != flatIndexMagic {
		return nil, fmt.Errorf("bad index magic %q", magic)
	}
	var version, dim, count uint32
	for _, p := range []*uint32{&version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("read index header: %w", err)
		}
	}
	if version != flatIndexVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}
	if dim == 0 {
		return nil, fmt.Errorf("index dimension is zero")
	}
	ix := newFlatIndex(int(dim))
	for i := uint32(0); i < count; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		ix.vecs = append(ix.vecs, vec)
	}
	return ix, nil
}
