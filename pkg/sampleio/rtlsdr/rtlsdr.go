// Package rtlsdr adapts an RTL-SDR dongle into a sampleio.Device.
package rtlsdr

import (
	"context"
	"sync"

	"github.com/dabcore/ofdmreceiver/pkg/sampleio"
	gsdr "github.com/jpoirier/gortlsdr"
)

const maxSampleRate = 2e6

type Device struct {
	deviceIdx int
	device    *gsdr.Context

	centerFreq int
	sampleRate int

	outputChan chan *sampleio.Segment
	ctx        context.Context
	wg         sync.WaitGroup
}

func NewDevice(deviceIdx int) (*Device, error) {
	return &Device{deviceIdx: deviceIdx}, nil
}

func (d *Device) MaxSampleRate() int {
	return maxSampleRate
}

func (d *Device) callback(buf []byte) {
	d.wg.Add(1)
	defer d.wg.Done()

	seg := sampleio.SegmentCS8Raw{
		SampleRate: d.sampleRate,
		Frequency:  d.centerFreq,
		Data:       buf,
	}

	complexSegment := seg.ToComplex64()
	select {
	case <-d.ctx.Done():
	case d.outputChan <- complexSegment:
	}
}

func (d *Device) Stop() error {
	err := d.device.CancelAsync()
	d.wg.Wait()
	if err != nil {
		return err
	}
	return d.device.Close()
}

func (d *Device) Start(ctx context.Context, centerFreq int, sampleRate int, out chan *sampleio.Segment) error {
	var err error
	d.device, err = gsdr.Open(d.deviceIdx)
	if err != nil {
		return err
	}
	d.ctx = ctx
	d.centerFreq = centerFreq
	d.sampleRate = sampleRate
	d.outputChan = out

	if err := d.device.SetCenterFreq(centerFreq); err != nil {
		return err
	}
	if err := d.device.SetSampleRate(sampleRate); err != nil {
		return err
	}
	if err := d.device.ResetBuffer(); err != nil {
		return err
	}

	d.wg.Add(1)
	defer d.wg.Done()
	return d.device.ReadAsync(d.callback, nil, 0, 0)
}
