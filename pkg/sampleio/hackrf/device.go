// Package hackrf adapts a HackRF One into a sampleio.Device, supplying the
// OFDM demodulator with 2.048 MS/s-class complex baseband samples.
package hackrf

import (
	"context"
	"os"

	"github.com/dabcore/ofdmreceiver/pkg/sampleio"
	"github.com/samuel/go-hackrf/hackrf"
)

const maxSampleRate = 20e6

type Device struct {
	device *hackrf.Device

	centerFreq int
	sampleRate int

	outputChan chan *sampleio.Segment
	ctx        context.Context

	recordLocation string
	outputFile     *os.File
}

func (d *Device) MaxSampleRate() int {
	return maxSampleRate
}

func NewRecordingDevice(recordLocation string) (*Device, error) {
	device, err := hackrf.Open()
	if err != nil {
		return nil, err
	}

	outFile, err := os.Create(recordLocation)
	if err != nil {
		return nil, err
	}

	return &Device{
		device:         device,
		outputFile:     outFile,
		recordLocation: recordLocation,
	}, nil
}

func NewDevice() (*Device, error) {
	device, err := hackrf.Open()
	if err != nil {
		return nil, err
	}

	return &Device{device: device}, nil
}

func (d *Device) callback(buf []byte) error {
	if d.outputFile != nil {
		_, err := d.outputFile.Write(buf)
		return err
	}

	seg := sampleio.SegmentCS8Raw{
		SampleRate: d.sampleRate,
		Frequency:  d.centerFreq,
		Data:       make([]byte, len(buf)),
	}
	copy(seg.Data, buf)

	complexSegment := seg.ToComplex64()
	select {
	case <-d.ctx.Done():
		return d.ctx.Err()
	case d.outputChan <- complexSegment:
	}

	return nil
}

func (d *Device) Start(ctx context.Context, centerFreq int, sampleRate int, out chan *sampleio.Segment) error {
	d.ctx = ctx
	d.outputChan = out
	d.centerFreq = centerFreq
	d.sampleRate = sampleRate

	if err := d.device.SetFreq(uint64(centerFreq)); err != nil {
		return err
	}
	if err := d.device.SetSampleRateManual(sampleRate*2, 2); err != nil {
		return err
	}
	if err := d.device.SetLNAGain(39); err != nil {
		return err
	}
	if err := d.device.SetBasebandFilterBandwidth(sampleRate); err != nil {
		return err
	}
	if err := d.device.SetAmpEnable(true); err != nil {
		return err
	}
	return d.device.StartRX(d.callback)
}

func (d *Device) Stop() error {
	if d.outputFile != nil {
		defer d.outputFile.Close()
	}
	return d.device.StopRX()
}
