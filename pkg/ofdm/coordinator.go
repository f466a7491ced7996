package ofdm

// coordinatorWorker runs the per-frame rendezvous: release all pipeline
// workers, collect their cyclic-prefix phase error, fold it into the fine
// frequency tracking loop, then wait for every worker to finish before
// telling the ingest side it may swap buffers.
type coordinatorWorker struct {
	demod     *Demodulator
	pipelines []*pipelineWorker

	startEv *event
	endEv   *event
}

func newCoordinatorWorker(demod *Demodulator, pipelines []*pipelineWorker) *coordinatorWorker {
	return &coordinatorWorker{
		demod:     demod,
		pipelines: pipelines,
		startEv:   newEvent(),
		endEv:     newEvent(),
	}
}

func (c *coordinatorWorker) stop() {
	c.startEv.Stop()
	c.endEv.Stop()
}

func (c *coordinatorWorker) signalStart() {
	c.startEv.Signal()
}

func (c *coordinatorWorker) waitEnd() bool {
	return c.endEv.Wait()
}

func (c *coordinatorWorker) run() {
	for {
		if !c.startEv.Wait() {
			return
		}

		for _, p := range c.pipelines {
			p.startEv.Signal()
		}

		var phaseErrSum float64
		for _, p := range c.pipelines {
			if !p.phaseErrorEv.Wait() {
				return
			}
			phaseErrSum += p.cyclicPhaseErrorSum
		}

		avgPhaseErr := phaseErrSum / float64(c.demod.params.NbFrameSymbols)
		fineFreqErr := calculateFineFrequencyError(avgPhaseErr, c.demod.params.NbFFT)
		delta := -c.demod.cfg.FineFreqUpdateBeta * fineFreqErr
		c.demod.updateFineFrequencyOffset(delta)

		for _, p := range c.pipelines {
			if !p.endEv.Wait() {
				return
			}
		}

		c.demod.onFrameDecoded()

		c.endEv.Signal()
	}
}

// calculateFineFrequencyError converts the average cyclic-prefix phase
// error, in radians, into a frequency offset normalized by the FFT length.
func calculateFineFrequencyError(phaseError float64, nbFFT int) float64 {
	const twoPi = 6.283185307179586
	return (1.0 / float64(nbFFT)) * phaseError / twoPi
}
