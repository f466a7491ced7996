package ofdm

import "math"

// findNullPowerDip examines one L1-average block at a time, looking for
// the power dip that marks the null symbol: a drop below
// ThreshNullStart*average followed by a rise back above
// ThreshNullEnd*average. Every sample examined is appended to
// nullPowerDipBuffer so that, once the dip's end is found, the whole
// captured null (and the lead-in before it) can seed correlationTimeBuffer.
func (d *Demodulator) findNullPowerDip(remaining []complex64) int {
	blockSize := d.cfg.SignalL1.NbSamples
	if blockSize <= 0 || blockSize > len(remaining) {
		blockSize = len(remaining)
	}
	if blockSize == 0 {
		return 0
	}
	block := remaining[:blockSize]

	l1 := calculateL1Average(block)
	d.nullPowerDipBuffer.Append(block)

	if !d.isNullStartFound && l1 < d.signalL1Average*d.cfg.ThreshNullStart {
		d.isNullStartFound = true
	}
	if d.isNullStartFound && !d.isNullEndFound && l1 > d.signalL1Average*d.cfg.ThreshNullEnd {
		d.isNullEndFound = true
	}

	if d.isNullEndFound {
		ordered := make([]complex64, d.nullPowerDipBuffer.Len())
		d.nullPowerDipBuffer.Ordered(ordered)

		d.correlationTimeBuffer.Reset()
		d.correlationTimeBuffer.ConsumeBuffer(ordered)

		d.isNullStartFound = false
		d.isNullEndFound = false
		d.nullPowerDipBuffer.Reset()
		d.state = readingNullAndPRS
	}

	return blockSize
}

// readNullAndPRS appends samples into correlationTimeBuffer until it holds
// a full null period followed by a full PRS symbol period.
func (d *Demodulator) readNullAndPRS(remaining []complex64) int {
	n := d.correlationTimeBuffer.ConsumeBuffer(remaining)
	if d.correlationTimeBuffer.IsFull() {
		d.state = runningCoarseFreqSync
	}
	return n
}

// runCoarseFreqSync consumes no samples. When coarse correction is
// disabled it simply zeroes the coarse offset; otherwise it correlates the
// captured PRS's differential time-domain pattern against the reference to
// estimate an integer-carrier frequency offset, nudges freqCoarseOffset
// toward it, and compensates the fine offset by the same delta so the
// total doesn't jump.
func (d *Demodulator) runCoarseFreqSync() int {
	if !d.cfg.IsCoarseFreqCorrection {
		d.freqCoarseOffset = 0
		d.state = runningFineTimeSync
		return 0
	}

	nbFFT := d.params.NbFFT
	prs := d.correlationTimeBuffer.Filled()[d.params.NbNullPeriod : d.params.NbNullPeriod+d.params.NbSymbolPeriod()]
	prsFFTWindow := prs[d.params.NbCyclicPrefix : d.params.NbCyclicPrefix+nbFFT]

	tmp1 := make([]complex64, nbFFT)
	d.ingestFFT.Forward(tmp1, prsFFTWindow)

	tmp2 := make([]complex64, nbFFT)
	calculateRelativePhase(tmp1, tmp2)

	tmp3 := make([]complex64, nbFFT)
	d.ingestFFT.Inverse(tmp3, tmp2)
	for i := range tmp3 {
		tmp3[i] *= d.ref.PRSTimeReference[i]
	}

	tmp4 := make([]complex64, nbFFT)
	d.ingestFFT.Forward(tmp4, tmp3)

	magBuf := make([]float64, nbFFT)
	calculateMagnitude(tmp4, magBuf)

	half := nbFFT / 2
	lo := half - d.cfg.MaxCarrierOffset
	if lo < 0 {
		lo = 0
	}
	hi := half + d.cfg.MaxCarrierOffset
	if hi > nbFFT-1 {
		hi = nbFFT - 1
	}

	bestIdx := -1
	bestVal := math.Inf(-1)
	for k := lo; k <= hi; k++ {
		if k == nbFFT {
			continue
		}
		if magBuf[k] > bestVal {
			bestVal = magBuf[k]
			bestIdx = k
		}
	}

	maxCarrierIndex := bestIdx - half
	predicted := -float64(maxCarrierIndex) / float64(nbFFT)
	errOffset := predicted - d.freqCoarseOffset

	threshold := d.cfg.LargeOffsetThresholdFactor / float64(nbFFT)
	isFastUpdate := math.Abs(errOffset) > threshold || !d.isFoundCoarseFreqOffset

	beta := d.cfg.CoarseFreqSlowBeta
	if isFastUpdate {
		beta = 1.0
	}
	delta := beta * errOffset

	d.freqCoarseOffset += delta
	d.isFoundCoarseFreqOffset = true
	d.updateFineFrequencyOffset(-delta)

	d.state = runningFineTimeSync
	return 0
}

// runFineTimeSync consumes no samples. It applies the current total
// frequency correction to the captured PRS, correlates it in the frequency
// domain against the reference, and finds the cyclic-prefix offset as the
// weighted peak of the resulting impulse response. A peak too weak
// relative to the impulse floor means the frame never properly
// synchronized, and the acquisition state machine resets.
func (d *Demodulator) runFineTimeSync() int {
	nbFFT := d.params.NbFFT
	symbolPeriod := d.params.NbSymbolPeriod()

	scratch := make([]complex64, symbolPeriod)
	copy(scratch, d.correlationTimeBuffer.Filled()[d.params.NbNullPeriod:d.params.NbNullPeriod+symbolPeriod])

	totalFreq := d.freqCoarseOffset + d.snapshotFineFreqOffset()
	applyPLL(scratch, 0, 0, totalFreq)

	// The window starts at the head of the PRS symbol period, cyclic prefix
	// included, so a PRS aligned to NbNullPeriod peaks at NbCyclicPrefix.
	tmp1 := make([]complex64, nbFFT)
	d.ingestFFT.Forward(tmp1, scratch[:nbFFT])
	for i := range tmp1 {
		tmp1[i] *= d.ref.PRSFFTReference[i]
	}

	impulse := make([]complex64, nbFFT)
	d.ingestFFT.Inverse(impulse, tmp1)

	impulseDB := make([]float64, nbFFT)
	var sum float64
	for i, v := range impulse {
		db := 20 * math.Log10(complexAbs(v))
		impulseDB[i] = db
		sum += db
	}
	impulseAvg := sum / float64(nbFFT)

	decayWeight := 1 - d.cfg.ImpulsePeakDistanceProbability
	expected := d.params.NbCyclicPrefix

	bestIdx := 0
	bestWeighted := math.Inf(-1)
	var bestVal float64
	for i, v := range impulseDB {
		normDistance := math.Abs(float64(expected-i)) / float64(symbolPeriod)
		probability := 1 - decayWeight*normDistance
		weighted := probability * v
		if weighted > bestWeighted {
			bestWeighted = weighted
			bestIdx = i
			bestVal = v
		}
	}

	if (bestVal - impulseAvg) < d.cfg.ImpulsePeakThresholdDB {
		d.Reset()
		return 0
	}

	offset := bestIdx - d.params.NbCyclicPrefix
	prsStartIndex := d.params.NbNullPeriod + offset
	prsLength := symbolPeriod - offset

	d.inactiveBuffer.Reset()
	d.inactiveBuffer.ConsumeBuffer(d.correlationTimeBuffer.Filled()[prsStartIndex : prsStartIndex+prsLength])
	d.correlationTimeBuffer.Reset()
	d.fineTimeOffset = offset
	d.state = readingSymbols
	return 0
}

// readSymbols appends samples into inactiveBuffer until it holds the
// remainder of the frame. Once full, it stages the trailing null symbol
// for the next frame's correlationTimeBuffer, waits for the previous
// frame's coordinator/pipeline run to finish, swaps the active and
// inactive buffers, and kicks off the new frame's coordinator run.
func (d *Demodulator) readSymbols(remaining []complex64) int {
	n := d.inactiveBuffer.ConsumeBuffer(remaining)
	if !d.inactiveBuffer.IsFull() {
		return n
	}

	d.correlationTimeBuffer.Reset()
	d.correlationTimeBuffer.ConsumeBuffer(d.inactiveBuffer.TrailingNull())

	if d.firstFrame {
		d.firstFrame = false
	} else if !d.coordinator.waitEnd() {
		return n
	}

	d.activeBuffer, d.inactiveBuffer = d.inactiveBuffer, d.activeBuffer
	d.inactiveBuffer.Reset()
	d.coordinator.signalStart()

	d.state = readingNullAndPRS
	return n
}

func complexAbs(v complex64) float64 {
	re, im := float64(real(v)), float64(imag(v))
	return math.Sqrt(re*re + im*im)
}
