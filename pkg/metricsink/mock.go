package metricsink

// MockSink discards every frame point. It is the default sink so the
// demodulator never needs a nil check on its metrics path.
type MockSink struct{}

func (MockSink) WriteFrame(FramePoint) {}
