package store

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"papertalk/internal/domain"
)

// L2Distance returns the Euclidean distance between a and b.
func L2Distance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// EncodeVector serialises a vector as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}

// SortByDistance orders results closest first. Ties are broken by file
// and chunk position so the order is reproducible.
func SortByDistance(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.FileID != b.FileID {
			return a.FileID < b.FileID
		}
		return a.ChunkIndex < b.ChunkIndex
	})
}

// TopK sorts results by distance and truncates them to k entries.
func TopK(results []domain.SearchResult, k int) []domain.SearchResult {
	SortByDistance(results)
	if k >= 0 && k < len(results) {
		results = results[:k]
	}
	return results
}

// CheckDimension reports an error when v does not have dimension dim.
func CheckDimension(v []float32, dim int) error {
	if len(v) != dim {
		return fmt.Errorf("vector dimension mismatch: expected %d, got %d", dim, len(v))
	}
	return nil
}
