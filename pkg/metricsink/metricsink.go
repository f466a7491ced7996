// Package metricsink reports per-frame OFDM demodulator metrics to an
// InfluxDB write API, mirroring the observability hook the coordinator
// invokes once per successfully decoded frame.
package metricsink

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
)

// FramePoint is the set of fields recorded for a single decoded frame.
type FramePoint struct {
	TotalFramesRead   uint64
	TotalFramesDesync uint64
	FreqCoarseOffset  float64
	FreqFineOffset    float64
	StageDurationsUs  map[string]int64
}

// Sink receives one FramePoint per decoded OFDM frame.
type Sink interface {
	WriteFrame(p FramePoint)
}

// InfluxSink writes frame points to an InfluxDB write API.
type InfluxSink struct {
	writeAPI api.WriteAPI
	measure  string
}

func NewInfluxSink(writeAPI api.WriteAPI, measurement string) *InfluxSink {
	return &InfluxSink{writeAPI: writeAPI, measure: measurement}
}

func (s *InfluxSink) WriteFrame(p FramePoint) {
	fields := map[string]interface{}{
		"total_frames_read":   p.TotalFramesRead,
		"total_frames_desync": p.TotalFramesDesync,
		"freq_coarse_offset":  p.FreqCoarseOffset,
		"freq_fine_offset":    p.FreqFineOffset,
	}
	for stage, us := range p.StageDurationsUs {
		fields["stage_"+stage+"_us"] = us
	}

	s.writeAPI.WritePoint(influxdb2.NewPoint(s.measure,
		map[string]string{"component": "ofdm_demodulator"},
		fields,
		time.Now()))
}
