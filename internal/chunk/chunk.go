// Package chunk splits logical payloads into host-sized segments and
// joins them back. The remote host caps each post's payload, so any
// write larger than the cap spans several posts; the splitter's job is
// exact coverage with no overlap, nothing smarter.
package chunk

import "fmt"

// DefaultMaxSegment is the per-post payload cap of the current host,
// in bytes.
const DefaultMaxSegment = 280

// Splitter cuts payloads into segments of at most MaxSegment bytes.
type Splitter struct {
	maxSegment int
}

// NewSplitter creates a splitter with the given segment cap. The cap
// must be positive; hosts with different limits pass their own value.
func NewSplitter(maxSegment int) (*Splitter, error) {
	if maxSegment <= 0 {
		return nil, fmt.Errorf("chunk: max segment must be positive, got %d", maxSegment)
	}
	return &Splitter{maxSegment: maxSegment}, nil
}

// MaxSegment returns the configured per-segment cap.
func (s *Splitter) MaxSegment() int {
	return s.maxSegment
}

// Split cuts content into consecutive segments of at most MaxSegment
// bytes, in order, covering content exactly once. Content that fits in
// one segment is returned as a single segment; this includes empty
// content, which yields one empty segment so every write posts at
// least one payload.
func (s *Splitter) Split(content []byte) [][]byte {
	if len(content) <= s.maxSegment {
		return [][]byte{content}
	}

	segments := make([][]byte, 0, (len(content)+s.maxSegment-1)/s.maxSegment)
	for off := 0; off < len(content); off += s.maxSegment {
		end := off + s.maxSegment
		if end > len(content) {
			end = len(content)
		}
		segments = append(segments, content[off:end])
	}
	return segments
}

// Join concatenates segments in the given order. Join(Split(c)) == c
// for all c.
func Join(segments [][]byte) []byte {
	total := 0
	for _, seg := range segments {
		total += len(seg)
	}
	out := make([]byte, 0, total)
	for _, seg := range segments {
		out = append(out, seg...)
	}
	return out
}
