package reverse

import (
	"bytes"

	"github.com/i5heu/linereverse/internal/bufpool"
	"github.com/i5heu/linereverse/internal/segment"
)

// ProcessSegment implements the carry-buffer protocol: given a freshly
// filled input segment, it reverses whole lines in place and reports which
// of two segments the caller should write, in the order they must be
// written (carry always precedes input).
//
// carry is the vessel a pipeline job uses to move a completed line from the
// worker to the writer; it must be empty (Length == 0) on every call, which
// the writer guarantees by resetting a job's segments once it has flushed
// them. accumulator is the worker's own persistent buffer, reused across
// every job the worker ever touches, that a trailing partial line is built
// up in until a later chunk supplies its terminator (or end-of-stream is
// reached, at which point it is emitted unterminated).
//
// When a line held in accumulator is completed, ProcessSegment swaps the
// two segment descriptors: carry inherits the accumulator's buffer (now
// holding the finished, reversed line) for the writer to consume, and
// accumulator inherits carry's old, empty buffer to resume accumulating
// into. No bytes are copied by the swap itself.
//
// A line that does not fit in one buffer (the pending tail plus the next
// chunk's bytes exceed the accumulator's capacity) is reported as a
// *MalformedInputError.
func ProcessSegment(pool *bufpool.Pool, input, carry, accumulator *segment.Segment) (emitCarry, emitInput bool, err error) {
	if accumulator.Length > 0 {
		inBuf := pool.Bytes(input.Buffer)
		window := inBuf[input.Offset : input.Offset+input.Length]
		accBuf := pool.Bytes(accumulator.Buffer)

		lfPos := bytes.IndexByte(window, lf)
		if lfPos < 0 {
			// No terminator anywhere in the fresh chunk. Under the
			// invariant that every line fits within one buffer, this is
			// only possible when the chunk is the last, unterminated
			// fragment of the file: fold it into the accumulator whole,
			// reverse the lot with no terminator to protect, and hand it
			// off as carry.
			if accumulator.Offset+accumulator.Length+input.Length > len(accBuf) {
				err = &MalformedInputError{Offset: input.Offset}
				return
			}
			copy(accBuf[accumulator.Offset+accumulator.Length:], window)
			accumulator.Length += input.Length
			if err = Range(accBuf, accumulator.Offset, accumulator.Offset+accumulator.Length); err != nil {
				return
			}
			input.Length = 0
			*carry, *accumulator = *accumulator, *carry
			return true, false, nil
		}

		prefixSize := lfPos + 1
		if accumulator.Offset+accumulator.Length+prefixSize > len(accBuf) {
			err = &MalformedInputError{Offset: input.Offset}
			return
		}
		copy(accBuf[accumulator.Offset+accumulator.Length:], window[:prefixSize])
		accumulator.Length += prefixSize

		lineEnd := terminatorEnd(accBuf, accumulator.Offset, accumulator.Offset+accumulator.Length-1)
		if err = Range(accBuf, accumulator.Offset, lineEnd); err != nil {
			return
		}

		input.Offset += prefixSize
		input.Length -= prefixSize

		*carry, *accumulator = *accumulator, *carry
		emitCarry = true
	}

	inBuf := pool.Bytes(input.Buffer)
	cursor := input.Offset
	end := input.Offset + input.Length

	for cursor < end {
		lfPos := bytes.IndexByte(inBuf[cursor:end], lf)
		if lfPos < 0 {
			break
		}
		lfAbs := cursor + lfPos
		lineEnd := terminatorEnd(inBuf, cursor, lfAbs)
		if err = Range(inBuf, cursor, lineEnd); err != nil {
			return
		}
		cursor = lfAbs + 1
	}

	if cursor < end {
		tail := end - cursor
		accBuf := pool.Bytes(accumulator.Buffer)
		copy(accBuf[:tail], inBuf[cursor:end])
		accumulator.Offset = 0
		accumulator.Length = tail
	}

	input.Length = cursor - input.Offset
	emitInput = input.Length > 0

	return emitCarry, emitInput, nil
}
