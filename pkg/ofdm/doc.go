// Package ofdm implements a resumable DAB (ETSI EN 300 401) OFDM receiver
// front end: null-symbol frame acquisition, PRS-based coarse/fine frequency
// and timing synchronization, FFT demodulation, DQPSK decoding, frequency
// deinterleaving, and soft-bit output, driven one sample block at a time by
// the caller.
package ofdm
