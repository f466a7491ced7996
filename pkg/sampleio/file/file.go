// Package file replays a raw interleaved-cs8 IQ capture from disk as a
// sampleio.Device, useful for running the demodulator against a recording
// made with NewRecordingDevice (hackrf package) or rtl_sdr.
package file

import (
	"context"
	"os"
	"time"

	"github.com/dabcore/ofdmreceiver/pkg/sampleio"
)

type Device struct {
	readFile    *os.File
	readSize    int
	timeBetween time.Duration
	sampleRate  int
	centerFreq  int
}

func NewDevice(path string, readSize int, sampleRate int, centerFreq int, timeBetween time.Duration) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return &Device{
		readFile:    f,
		readSize:    readSize,
		timeBetween: timeBetween,
		sampleRate:  sampleRate,
		centerFreq:  centerFreq,
	}, nil
}

func (d *Device) Start(ctx context.Context, centerFreq int, sampleRate int, out chan *sampleio.Segment) error {
	tick := time.NewTicker(d.timeBetween)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			buf := make([]byte, d.readSize)
			n, err := d.readFile.Read(buf)
			if err != nil {
				return err
			}

			seg := sampleio.SegmentCS8Raw{
				SampleRate: d.sampleRate,
				Frequency:  d.centerFreq,
				Data:       buf[:n],
			}
			complexSegment := seg.ToComplex64()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- complexSegment:
			}
		}
	}
}

func (d *Device) Stop() error {
	return d.readFile.Close()
}

func (d *Device) MaxSampleRate() int {
	return 20e6
}
