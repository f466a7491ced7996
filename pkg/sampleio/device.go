package sampleio

import "context"

// Device is an IQ sample source: a file, an RTL-SDR dongle, or a HackRF.
// It is an external collaborator to the OFDM core (spec §1) — the core only
// ever consumes the []complex64 batches it produces via Start's channel.
type Device interface {
	Start(ctx context.Context, centerFreq int, sampleRate int, out chan *Segment) error
	Stop() error
	MaxSampleRate() int
}
