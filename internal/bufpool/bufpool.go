// Package bufpool implements the pipeline's single fixed-size allocation:
// one contiguous, cache-line-aligned block of memory carved into N
// equal-size buffers. The allocation happens once, at pipeline startup, and
// its address is stable for the lifetime of the run, which is what gives
// the pipeline its Θ(N·buf_size) memory footprint independent of input
// size.
package bufpool

import "unsafe"

// CacheLine is the assumed CPU cache-line size. 64 bytes covers every
// mainstream x86-64 and arm64 part; buffers are strided to a multiple of
// this so that no two buffers ever share a cache line.
const CacheLine = 64

// Pool owns one aligned allocation and exposes fixed-size buffer views into
// it by index. Buffers are addressed by small integer handles rather than
// slices so that a segment.Segment can travel through a Job without ever
// aliasing another goroutine's view of the same backing array.
type Pool struct {
	block  []byte
	base   int // offset into block of the first cache-line-aligned byte
	stride int
	count  int
	size   int // usable bytes per buffer (== size passed to New)
}

// New allocates count buffers of size bytes each, strided to a cache-line
// multiple, in a single backing allocation.
func New(count, size int) *Pool {
	if count <= 0 {
		panic("bufpool: count must be positive")
	}
	if size <= 0 {
		panic("bufpool: size must be positive")
	}

	stride := roundUp(size, CacheLine)
	// Over-allocate by one cache line so we can slide the usable region
	// forward to the first aligned address, regardless of where the Go
	// allocator happened to place the backing array.
	block := make([]byte, count*stride+CacheLine)

	base := alignOffset(block, CacheLine)

	return &Pool{
		block:  block,
		base:   base,
		stride: stride,
		count:  count,
		size:   size,
	}
}

// Count returns the number of buffers carved from the pool.
func (p *Pool) Count() int { return p.count }

// Size returns the usable byte capacity of each buffer.
func (p *Pool) Size() int { return p.size }

// Bytes returns the full-capacity byte slice backing buffer index i. The
// slice is valid for the lifetime of the Pool; callers slice it further by
// offset/length as described by a segment.Segment.
func (p *Pool) Bytes(i int) []byte {
	start := p.base + i*p.stride
	return p.block[start : start+p.size : start+p.stride]
}

func roundUp(n, multiple int) int {
	if multiple == 0 {
		return n
	}
	return (n + multiple - 1) / multiple * multiple
}

// alignOffset returns the smallest index into block whose address is a
// multiple of align.
func alignOffset(block []byte, align int) int {
	if len(block) == 0 {
		return 0
	}
	addr := uintptr(unsafe.Pointer(&block[0]))
	rem := int(addr % uintptr(align))
	if rem == 0 {
		return 0
	}
	return align - rem
}
