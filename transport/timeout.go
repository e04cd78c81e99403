package transport

import (
	"errors"
	"io"
	"time"
)

// errNoDevice is returned when USB enumeration finds no matching target.
var errNoDevice = errors.New("no Samsung download-mode USB device found")

// errNoCDCInterface is returned when a matching device exposes no
// CDC-Data interface with exactly two bulk endpoints.
var errNoCDCInterface = errors.New("no CDC-Data interface with two bulk endpoints found")

// errShortRead is returned when a bulk IN transfer returns zero bytes
// while more were still expected.
var errShortRead = errors.New("short read from USB bulk endpoint")

// readWithin performs a single Read against r, racing it against a
// timeout. On timeout it returns an error but does not attempt to cancel
// the in-flight read -- the same tradeoff comm.Timeout makes in the
// teacher's codebase, since gousb exposes no cancellable read primitive.
func readWithin(r io.Reader, buf []byte, d time.Duration) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := r.Read(buf)
		done <- result{n, err}
	}()

	select {
	case res := <-done:
		return res.n, res.err
	case <-time.After(d):
		return 0, errReadTimeout
	}
}

var errReadTimeout = errors.New("read timed out")
