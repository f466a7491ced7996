// Package sampleio defines the IQ sample sources that feed an
// ofdm.Demodulator. The demodulator core treats the sample source as an
// external collaborator: it only ever sees []complex64 batches delivered
// over a channel.
package sampleio

import "time"

// Segment is a batch of baseband IQ samples captured at a given center
// frequency and sample rate.
type Segment struct {
	SampleRate int
	Frequency  int
	Data       []complex64
	Timestamp  time.Time
}

// SegmentCS8Raw is the raw interleaved 8-bit I/Q format that RTL-SDR and
// HackRF devices deliver over their async callback APIs.
type SegmentCS8Raw struct {
	SampleRate int
	Frequency  int
	Data       []byte
}

// ToComplex64 converts interleaved unsigned 8-bit I/Q pairs (as delivered by
// RTL-SDR, offset around 128) into a centered complex64 segment.
func (s SegmentCS8Raw) ToComplex64() *Segment {
	n := len(s.Data) / 2
	out := make([]complex64, n)
	for i := 0; i < n; i++ {
		re := (float32(s.Data[2*i]) - 127.5) / 127.5
		im := (float32(s.Data[2*i+1]) - 127.5) / 127.5
		out[i] = complex(re, im)
	}
	return &Segment{
		SampleRate: s.SampleRate,
		Frequency:  s.Frequency,
		Data:       out,
	}
}
