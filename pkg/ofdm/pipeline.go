package ofdm

import "math"

// pipelineWorker demodulates one contiguous range of symbols within a
// frame: per-symbol PLL correction, FFT, cyclic-prefix phase-error
// accumulation, DQPSK decoding, and soft-bit output. Workers are chained
// through dependent so that the last DQPSK pair of a range, which needs
// the FFT of the next worker's first symbol, can wait for exactly that FFT
// instead of the next worker's entire range.
type pipelineWorker struct {
	id        int
	demod     *Demodulator
	fft       *fftPlan
	symStart  int
	symEnd    int
	dependent *pipelineWorker

	startEv      *event
	phaseErrorEv *event
	fftEv        *event
	endEv        *event

	cyclicPhaseErrorSum float64
}

func newPipelineWorker(id int, demod *Demodulator, symStart, symEnd int) *pipelineWorker {
	return &pipelineWorker{
		id:           id,
		demod:        demod,
		fft:          newFFTPlan(demod.params.NbFFT),
		symStart:     symStart,
		symEnd:       symEnd,
		startEv:      newEvent(),
		phaseErrorEv: newEvent(),
		fftEv:        newEvent(),
		endEv:        newEvent(),
	}
}

func (p *pipelineWorker) stop() {
	p.startEv.Stop()
	p.phaseErrorEv.Stop()
	p.fftEv.Stop()
	p.endEv.Stop()
}

// run executes the worker's per-frame loop until the start barrier is
// stopped.
func (p *pipelineWorker) run() {
	params := p.demod.params
	for {
		if !p.startEv.Wait() {
			return
		}

		freqOffset := p.demod.freqCoarseOffset + p.demod.snapshotFineFreqOffset()

		var phaseErrSum float64
		for s := p.symStart; s < p.symEnd; s++ {
			sym := p.demod.activeBuffer.Symbol(s)

			sampleOffset := s * params.NbSymbolPeriod()
			dt0 := float64(sampleOffset) * freqOffset
			applyPLL(sym, 0, dt0, freqOffset)

			if s < params.NbFrameSymbols {
				cp := params.NbCyclicPrefix
				x0 := sym[params.NbFFT : params.NbFFT+cp]
				x1 := sym[:cp]
				errVec := complexConjMulSum(x0, x1)
				phaseErrSum += math.Atan2(float64(imag(errVec)), float64(real(errVec)))
			}

			fftDst := p.demod.fftSlice(s)
			p.fft.Forward(fftDst, sym[params.NbCyclicPrefix:params.NbCyclicPrefix+params.NbFFT])
			if s == p.symStart {
				p.fftEv.Signal()
			}
		}
		p.cyclicPhaseErrorSum = phaseErrSum
		p.phaseErrorEv.Signal()

		// dqpskEnd/pairStart are in calculateDQPSKAndBits's s-space, where
		// call s computes pair (s-1, s); the original's j-space pair
		// (j, j+1) with j in [symbol_start, min(symbol_end,
		// nb_frame_symbols-1)) maps to s = j+1, so the upper bound gains
		// the same +1 and the lower bound starts one past symbol_start.
		dqpskEnd := p.symEnd + 1
		if dqpskEnd > params.NbFrameSymbols {
			dqpskEnd = params.NbFrameSymbols
		}
		pairStart := p.symStart + 1

		if pairStart < dqpskEnd {
			for s := pairStart; s < dqpskEnd-1; s++ {
				p.demod.calculateDQPSKAndBits(s)
			}
			if p.dependent != nil {
				if !p.dependent.fftEv.Wait() {
					return
				}
			}
			p.demod.calculateDQPSKAndBits(dqpskEnd - 1)
		}

		p.endEv.Signal()
	}
}
