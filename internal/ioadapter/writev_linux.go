//go:build linux

package ioadapter

import (
	"io"

	"golang.org/x/sys/unix"
)

// WriteVec flushes bufs as a single writev(2) call, retrying with the
// remaining, partially-consumed vector until everything is written. Empty
// buffers are skipped since unix.Writev treats a zero-length leading vector
// as nothing to write on some kernels.
func (a *FileAdapter) WriteVec(bufs [][]byte) (int, error) {
	want := totalLen(bufs)
	if want == 0 {
		return 0, nil
	}

	fd := int(a.f.Fd())
	written := 0
	pending := nonEmpty(bufs)
	for written < want {
		n, err := unix.Writev(fd, pending)
		if n > 0 {
			written += n
			pending = dropFront(pending, n)
		}
		if err != nil {
			return written, &IOError{Op: "writev", Path: a.f.Name(), Err: err}
		}
		if n == 0 && len(pending) > 0 {
			return written, &IOError{Op: "writev", Path: a.f.Name(), Err: io.ErrNoProgress}
		}
	}
	return written, nil
}

func nonEmpty(bufs [][]byte) [][]byte {
	out := make([][]byte, 0, len(bufs))
	for _, b := range bufs {
		if len(b) > 0 {
			out = append(out, b)
		}
	}
	return out
}
