package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/PeterGrace/meshcore-companion-go/internal/logging"
	"github.com/PeterGrace/meshcore-companion-go/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	FramesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_rx_frames_total",
		Help: "Total frames decoded from the radio's serial link.",
	})
	FramesTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_tx_frames_total",
		Help: "Total frames written to the radio's serial link.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total rejected malformed frames (bad delimiter, truncated, oversized).",
	})
	CongestionRefusals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "congestion_refusals_total",
		Help: "Total SendTxtMsg submissions refused because a message was already in flight.",
	})
	RetriesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retries_sent_total",
		Help: "Total direct text messages resent after a SEND_CONFIRMED timeout.",
	})
	RetriesExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "retries_exhausted_total",
		Help: "Total direct text messages abandoned after exhausting their retry budget.",
	})
	UnsolicitedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unsolicited_responses_total",
		Help: "Total OK/ERR frames observed with an empty command queue and SEND_CONFIRMED pushes with an unknown ack code.",
	})
	CommandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commands_sent_total",
		Help: "Total commands submitted to the radio, by kind.",
	}, []string{"kind"})
	CommandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "command_errors_total",
		Help: "Total ERR frames matched to a queued command, by kind and error sub-code.",
	}, []string{"kind", "error"})
	AckTableSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ack_table_size",
		Help: "Current number of direct messages awaiting SEND_CONFIRMED.",
	})
	CommandQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "command_queue_depth",
		Help: "Current number of commands awaiting an OK/ERR response.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrSerialWrite    = "serial_write"
	ErrSerialRead     = "serial_read"
	ErrSerialOverflow = "serial_tx_overflow"
	ErrSerialOpen     = "serial_open"
	ErrFrameDecode    = "frame_decode"
)

// StartHTTP serves Prometheus metrics at /metrics on its own mux.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap in-process logging (avoid scraping
// Prometheus from inside the process just to log a summary).
var (
	localFramesRx     uint64
	localFramesTx     uint64
	localMalformed    uint64
	localCongestion   uint64
	localRetries      uint64
	localRetriesDrop  uint64
	localUnsolicited  uint64
	localErrors       uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	FramesRx         uint64
	FramesTx         uint64
	Malformed        uint64
	CongestionEvents uint64
	Retries          uint64
	RetriesExhausted uint64
	Unsolicited      uint64
	Errors           uint64
}

func Snap() Snapshot {
	return Snapshot{
		FramesRx:         atomic.LoadUint64(&localFramesRx),
		FramesTx:         atomic.LoadUint64(&localFramesTx),
		Malformed:        atomic.LoadUint64(&localMalformed),
		CongestionEvents: atomic.LoadUint64(&localCongestion),
		Retries:          atomic.LoadUint64(&localRetries),
		RetriesExhausted: atomic.LoadUint64(&localRetriesDrop),
		Unsolicited:      atomic.LoadUint64(&localUnsolicited),
		Errors:           atomic.LoadUint64(&localErrors),
	}
}

func IncFramesRx() {
	FramesRx.Inc()
	atomic.AddUint64(&localFramesRx, 1)
}

func IncFramesTx() {
	FramesTx.Inc()
	atomic.AddUint64(&localFramesTx, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

func IncCongestionRefusal() {
	CongestionRefusals.Inc()
	atomic.AddUint64(&localCongestion, 1)
}

func IncRetrySent() {
	RetriesSent.Inc()
	atomic.AddUint64(&localRetries, 1)
}

func IncRetryExhausted() {
	RetriesExhausted.Inc()
	atomic.AddUint64(&localRetriesDrop, 1)
}

func IncUnsolicited() {
	UnsolicitedResponses.Inc()
	atomic.AddUint64(&localUnsolicited, 1)
}

func IncCommandSent(kind state.CommandKind) {
	CommandsSent.WithLabelValues(kind.String()).Inc()
}

func IncCommandError(kind state.CommandKind, errLabel string) {
	CommandErrors.WithLabelValues(kind.String(), errLabel).Inc()
}

func SetAckTableSize(n int) {
	AckTableSize.Set(float64(n))
}

func SetCommandQueueDepth(n int) {
	CommandQueueDepth.Set(float64(n))
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrSerialWrite, ErrSerialRead, ErrSerialOverflow, ErrSerialOpen, ErrFrameDecode} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
