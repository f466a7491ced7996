package ofdm

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dabcore/ofdmreceiver/pkg/metricsink"
	"github.com/dabcore/ofdmreceiver/pkg/status"
	"github.com/dabcore/ofdmreceiver/pkg/util"
)

// FrameResult is delivered to an Observer once per successfully decoded
// frame.
type FrameResult struct {
	// Bits holds (NbFrameSymbols-1)*NbDataCarriers*2 soft decision bytes,
	// ready for a downstream Viterbi decoder. The slice is owned by the
	// caller; the demodulator allocates a fresh one per frame.
	Bits              []int8
	TotalFramesRead   uint64
	TotalFramesDesync uint64
	FreqCoarseOffset  float64
	FreqFineOffset    float64
	FineTimeOffset    int
	StageDurationsUs  map[string]int64
}

// Observer receives frame results as they become available, on the
// coordinator goroutine. Implementations must not block for long.
type Observer func(FrameResult)

// Option configures a Demodulator at construction time.
type Option func(*Demodulator)

func WithObserver(obs Observer) Option {
	return func(d *Demodulator) { d.observer = obs }
}

func WithMetricSink(sink metricsink.Sink) Option {
	return func(d *Demodulator) { d.metricSink = sink }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(d *Demodulator) { d.logger = logger }
}

// Demodulator is a resumable DAB OFDM receiver front end. Process is called
// by a single ingest goroutine with successive blocks of baseband IQ
// samples; a coordinator goroutine and a pool of pipeline worker goroutines
// handle the per-frame FFT/DQPSK work in the background, synchronized
// through the barriers in barrier.go.
type Demodulator struct {
	cfg    Config
	params Params
	ref    Reference

	logger     zerolog.Logger
	metricSink metricsink.Sink
	observer   Observer

	state acquisitionState

	signalL1Average float64

	nullPowerDipBuffer    *circularBuffer
	isNullStartFound      bool
	isNullEndFound        bool
	correlationTimeBuffer *linearBuffer

	// freqCoarseOffset is written only by the ingest goroutine, during
	// RUNNING_COARSE_FREQ_SYNC, and published to pipeline workers via the
	// start barrier's happens-before edge.
	freqCoarseOffset        float64
	isFoundCoarseFreqOffset bool

	// freqFineOffset is written by both the ingest goroutine (coarse
	// correction's compensating fine nudge) and the coordinator goroutine
	// (the per-frame cyclic-prefix tracking loop), so it is guarded by a
	// mutex; pipeline workers read it once per frame via
	// snapshotFineFreqOffset.
	freqFineMu     sync.Mutex
	freqFineOffset float64

	fineTimeOffset int
	firstFrame     bool

	activeBuffer   *frameBuffer
	inactiveBuffer *frameBuffer

	pipelineFFTBuffer []complex64 // (NbFrameSymbols+1)*NbFFT, one plan's worth per symbol slot
	pipelineOutBits   []int8      // (NbFrameSymbols-1)*NbDataCarriers*2

	ingestFFT *fftPlan

	pipelines   []*pipelineWorker
	coordinator *coordinatorWorker
	wg          sync.WaitGroup

	totalFramesRead   uint64
	totalFramesDesync uint64

	stageMu         sync.Mutex
	stageDurationsUs map[string]int64

	closeOnce sync.Once
	closed    bool
}

// NewDemodulator constructs a Demodulator for the given configuration,
// OFDM geometry, and precomputed correlation reference, and starts its
// coordinator and pipeline worker goroutines.
func NewDemodulator(cfg Config, params Params, ref Reference, opts ...Option) (*Demodulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if ref.NbFFT != params.NbFFT {
		return nil, fmt.Errorf("ofdm: reference built for FFT length %d, params want %d", ref.NbFFT, params.NbFFT)
	}
	if len(ref.CarrierMapper) != params.NbDataCarriers {
		return nil, fmt.Errorf("ofdm: carrier mapper has %d entries, params want %d", len(ref.CarrierMapper), params.NbDataCarriers)
	}

	d := &Demodulator{
		cfg:                   cfg,
		params:                params,
		ref:                   ref,
		logger:                zerolog.Nop(),
		metricSink:            metricsink.MockSink{},
		state:                 findingNullPowerDip,
		nullPowerDipBuffer:    newCircularBuffer(params.NbNullPeriod),
		correlationTimeBuffer: newLinearBuffer(params.NbNullPeriod + params.NbSymbolPeriod()),
		activeBuffer:          newFrameBuffer(params),
		inactiveBuffer:        newFrameBuffer(params),
		pipelineFFTBuffer:     make([]complex64, (params.NbFrameSymbols+1)*params.NbFFT),
		pipelineOutBits:       make([]int8, (params.NbFrameSymbols-1)*params.NbDataCarriers*2),
		ingestFFT:             newFFTPlan(params.NbFFT),
		firstFrame:            true,
		stageDurationsUs:      make(map[string]int64),
	}
	for _, opt := range opts {
		opt(d)
	}

	ranges := computeWorkerRanges(params.NbFrameSymbols+1, cfg.NbDesiredThreads)
	d.pipelines = make([]*pipelineWorker, len(ranges))
	for i, r := range ranges {
		d.pipelines[i] = newPipelineWorker(i, d, r[0], r[1])
	}
	for i := 0; i < len(d.pipelines)-1; i++ {
		d.pipelines[i].dependent = d.pipelines[i+1]
	}
	d.coordinator = newCoordinatorWorker(d, d.pipelines)

	d.logger.Debug().
		Int("nb_pipeline_workers", len(d.pipelines)).
		Int("nb_fft", params.NbFFT).
		Int("nb_frame_symbols", params.NbFrameSymbols).
		Msg("ofdm demodulator constructed")

	d.wg.Add(len(d.pipelines) + 1)
	for _, p := range d.pipelines {
		p := p
		go func() {
			defer d.wg.Done()
			p.run()
		}()
	}
	go func() {
		defer d.wg.Done()
		d.coordinator.run()
	}()

	return d, nil
}

// computeWorkerRanges carves nbSyms symbol slots into contiguous ranges for
// up to nbDesiredThreads workers, reserving one core for the ingest
// goroutine when nbDesiredThreads is unset and more than one core is
// available.
func computeWorkerRanges(nbSyms, nbDesiredThreads int) [][2]int {
	nbThreads := nbDesiredThreads
	if nbThreads <= 0 {
		n := runtime.GOMAXPROCS(0)
		if n > 1 {
			n--
		}
		nbThreads = n
	}
	if nbThreads > nbSyms {
		nbThreads = nbSyms
	}
	if nbThreads < 1 {
		nbThreads = 1
	}

	ranges := make([][2]int, nbThreads)
	remainingSyms := nbSyms
	remainingThreads := nbThreads
	start := 0
	for i := 0; i < nbThreads; i++ {
		count := (remainingSyms + remainingThreads - 1) / remainingThreads
		end := start + count
		ranges[i] = [2]int{start, end}
		start = end
		remainingSyms -= count
		remainingThreads--
	}
	return ranges
}

// Process feeds a block of baseband IQ samples through the acquisition and
// tracking state machine, advancing as far as the block allows. It must be
// called from a single goroutine; the caller is the "ingest thread" in the
// concurrency model.
func (d *Demodulator) Process(samples []complex64) error {
	if d.closed {
		return ErrClosed
	}
	if len(samples) == 0 {
		return nil
	}

	d.updateSignalAverage(samples)

	curr := 0
	for curr < len(samples) {
		if d.closed {
			return ErrClosed
		}

		remaining := samples[curr:]
		stateName := d.state.String()

		var consumed int
		us := util.TimeOperationMicroseconds(func() {
			switch d.state {
			case findingNullPowerDip:
				consumed = d.findNullPowerDip(remaining)
			case readingNullAndPRS:
				consumed = d.readNullAndPRS(remaining)
			case runningCoarseFreqSync:
				consumed = d.runCoarseFreqSync()
			case runningFineTimeSync:
				consumed = d.runFineTimeSync()
			case readingSymbols:
				consumed = d.readSymbols(remaining)
			}
		})

		d.stageMu.Lock()
		d.stageDurationsUs[stateName] += us
		d.stageMu.Unlock()

		// Zero-consumption states (the two sync stages) always transition
		// before returning; a state that neither consumes nor transitions
		// would spin forever, so treat that combination as "wait for the
		// next call" instead of busy-looping.
		if consumed == 0 && d.state.String() == stateName {
			break
		}
		curr += consumed
	}
	return nil
}

// updateSignalAverage walks samples in strides of nb_samples*nb_decimate,
// taking the contiguous nb_samples window at each stride position and
// folding its L1 average into signalL1Average with one EMA update per
// stride position — a large batch therefore produces several updates, not
// just one.
func (d *Demodulator) updateSignalAverage(samples []complex64) {
	nbSamples := d.cfg.SignalL1.NbSamples
	if nbSamples <= 0 {
		nbSamples = len(samples)
	}
	decimate := d.cfg.SignalL1.NbDecimate
	if decimate < 1 {
		decimate = 1
	}
	stride := nbSamples * decimate
	beta := d.cfg.SignalL1.Beta

	for start := 0; start < len(samples); start += stride {
		end := start + nbSamples
		if end > len(samples) {
			end = len(samples)
		}
		block := samples[start:end]
		if len(block) == 0 {
			break
		}
		l1 := calculateL1Average(block)
		d.signalL1Average = beta*d.signalL1Average + (1-beta)*l1
	}
}

// Reset discards in-flight acquisition state and returns to
// FINDING_NULL_POWER_DIP, incrementing the desync counter. It is called
// internally when fine time sync fails to find an adequate impulse peak,
// and may also be called by a caller that detects upstream desync (e.g. a
// device retune).
func (d *Demodulator) Reset() {
	d.state = findingNullPowerDip
	d.correlationTimeBuffer.Reset()
	d.nullPowerDipBuffer.Reset()
	d.isNullStartFound = false
	d.isNullEndFound = false
	atomic.AddUint64(&d.totalFramesDesync, 1)
	d.isFoundCoarseFreqOffset = false
	d.freqCoarseOffset = 0
	d.setFineFreqOffset(0)
	d.fineTimeOffset = 0
}

// Close stops the coordinator and pipeline worker goroutines and waits for
// them to exit. It is safe to call more than once.
func (d *Demodulator) Close() error {
	d.closeOnce.Do(func() {
		d.closed = true
		d.coordinator.stop()
		for _, p := range d.pipelines {
			p.stop()
		}
		d.wg.Wait()
	})
	return nil
}

func (d *Demodulator) TotalFramesRead() uint64 {
	return atomic.LoadUint64(&d.totalFramesRead)
}

func (d *Demodulator) TotalFramesDesync() uint64 {
	return atomic.LoadUint64(&d.totalFramesDesync)
}

// Snapshot implements status.Provider.
func (d *Demodulator) Snapshot() status.Snapshot {
	return status.Snapshot{
		State:             d.state.String(),
		TotalFramesRead:   d.TotalFramesRead(),
		TotalFramesDesync: d.TotalFramesDesync(),
		FreqCoarseOffset:  d.freqCoarseOffset,
		FreqFineOffset:    d.snapshotFineFreqOffset(),
		FineTimeOffset:    d.fineTimeOffset,
	}
}

func (d *Demodulator) snapshotFineFreqOffset() float64 {
	d.freqFineMu.Lock()
	defer d.freqFineMu.Unlock()
	return d.freqFineOffset
}

func (d *Demodulator) setFineFreqOffset(v float64) {
	d.freqFineMu.Lock()
	d.freqFineOffset = v
	d.freqFineMu.Unlock()
}

// updateFineFrequencyOffset applies a correction to the fine frequency
// offset and wraps it into a small range around zero, matching the
// original tracker's fmod-based wrap: without it, the offset would drift
// unbounded under a DC-biased error estimator.
func (d *Demodulator) updateFineFrequencyOffset(delta float64) {
	d.freqFineMu.Lock()
	defer d.freqFineMu.Unlock()
	d.freqFineOffset += delta
	wrap := 0.5 * (1.0 / float64(d.params.NbFFT)) * 1.01
	d.freqFineOffset = math.Mod(d.freqFineOffset, wrap)
}

// fftSlice returns the shared per-frame FFT scratch region for symbol i.
func (d *Demodulator) fftSlice(i int) []complex64 {
	n := d.params.NbFFT
	return d.pipelineFFTBuffer[i*n : (i+1)*n]
}

// calculateDQPSKAndBits demodulates the DQPSK pair (s-1, s), deinterleaves
// it through the carrier map, and writes its soft bits into
// pipelineOutBits at offset (s-1)*NbDataCarriers*2.
func (d *Demodulator) calculateDQPSKAndBits(s int) {
	fft0 := d.fftSlice(s - 1)
	fft1 := d.fftSlice(s)

	m := d.params.NbDataCarriers / 2
	nbFFT := d.params.NbFFT
	outBase := (s - 1) * d.params.NbDataCarriers * 2
	viterbiHigh := d.cfg.SoftDecisionViterbiHigh

	for i := -m; i <= m; i++ {
		if i == 0 {
			continue
		}
		fftIndex := ((i % nbFFT) + nbFFT) % nbFFT
		subcarrierIndex := i + m
		if i > 0 {
			subcarrierIndex--
		}

		vec := complex128(fft1[fftIndex]) * conj128(complex128(fft0[fftIndex]))
		a := math.Max(math.Abs(real(vec)), math.Abs(imag(vec)))
		var norm complex128
		if a > 0 {
			norm = vec / complex(a, 0)
		}

		j := d.ref.CarrierMapper[subcarrierIndex]
		d.pipelineOutBits[outBase+j] = convertToViterbiBit(real(norm), viterbiHigh)
		d.pipelineOutBits[outBase+d.params.NbDataCarriers+j] = convertToViterbiBit(-imag(norm), viterbiHigh)
	}
}

// onFrameDecoded is invoked by the coordinator goroutine once all pipeline
// workers have finished a frame. It publishes the frame to the observer
// and metric sink and resets per-frame stage timing.
func (d *Demodulator) onFrameDecoded() {
	atomic.AddUint64(&d.totalFramesRead, 1)

	bits := make([]int8, len(d.pipelineOutBits))
	copy(bits, d.pipelineOutBits)

	d.stageMu.Lock()
	stages := d.stageDurationsUs
	d.stageDurationsUs = make(map[string]int64)
	d.stageMu.Unlock()

	result := FrameResult{
		Bits:              bits,
		TotalFramesRead:   atomic.LoadUint64(&d.totalFramesRead),
		TotalFramesDesync: atomic.LoadUint64(&d.totalFramesDesync),
		FreqCoarseOffset:  d.freqCoarseOffset,
		FreqFineOffset:    d.snapshotFineFreqOffset(),
		FineTimeOffset:    d.fineTimeOffset,
		StageDurationsUs:  stages,
	}

	d.metricSink.WriteFrame(metricsink.FramePoint{
		TotalFramesRead:   result.TotalFramesRead,
		TotalFramesDesync: result.TotalFramesDesync,
		FreqCoarseOffset:  result.FreqCoarseOffset,
		FreqFineOffset:    result.FreqFineOffset,
		StageDurationsUs:  stages,
	})

	if d.observer != nil {
		d.observer(result)
	}
}
