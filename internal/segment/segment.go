// Package segment defines the descriptor type shared by the buffer pool,
// the reversal engine, and the pipeline: a (buffer, offset, length) window
// into a pool-owned byte slice.
package segment

// Segment names a valid byte range within a pool buffer.
//
// Buffer is an index into the owning bufpool.Pool, not a raw pointer: job
// slots are passed between goroutines as small indices, and a Segment
// travels embedded in a Job rather than being copied across a queue on its
// own, so there is no lock-free-queue requirement forcing it to be a bare
// pointer the way the original C++ implementation used one.
type Segment struct {
	Buffer int
	Offset int
	Length int
}

// Empty reports whether the segment currently names zero valid bytes.
// A zero-length segment either means "nothing here yet" or, on the
// pipeline's input segment, "end of stream" — callers disambiguate using
// context.
func (s Segment) Empty() bool {
	return s.Length == 0
}

// Reset clears offset and length, leaving Buffer (and therefore the
// underlying storage) untouched.
func (s *Segment) Reset() {
	s.Offset = 0
	s.Length = 0
}
