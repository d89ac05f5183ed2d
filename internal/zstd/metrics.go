package zstd

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the counters a Session registers against a
// caller-supplied prometheus.Registerer. There is no package-level
// default registry: a Session that never calls WithMetrics never
// touches Prometheus at all.
type metrics struct {
	framesCompressed   prometheus.Counter
	framesDecompressed prometheus.Counter
	bytesIn            prometheus.Counter
	bytesOut           prometheus.Counter
	blockType          *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		framesCompressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zstd_frames_compressed_total",
			Help: "Number of frames produced by Session.Compress.",
		}),
		framesDecompressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zstd_frames_decompressed_total",
			Help: "Number of frames consumed by Session.Decompress.",
		}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zstd_bytes_in_total",
			Help: "Total bytes passed into Compress or Decompress.",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zstd_bytes_out_total",
			Help: "Total bytes produced by Compress or Decompress.",
		}),
		blockType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zstd_block_type_total",
			Help: "Blocks written, by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.framesCompressed, m.framesDecompressed, m.bytesIn, m.bytesOut, m.blockType)
	}
	return m
}
