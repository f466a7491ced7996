package ofdm

import "errors"

// ErrClosed is returned by Process once the demodulator has been closed.
var ErrClosed = errors.New("ofdm: demodulator is closed")
