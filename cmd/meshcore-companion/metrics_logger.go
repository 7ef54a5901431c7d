package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/PeterGrace/meshcore-companion-go/internal/metrics"
)

// startMetricsLogger periodically logs a metrics snapshot, useful when
// --metrics-addr is left unset and nothing is scraping Prometheus.
func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"frames_rx", snap.FramesRx,
					"frames_tx", snap.FramesTx,
					"malformed", snap.Malformed,
					"congestion_refusals", snap.CongestionEvents,
					"retries_sent", snap.Retries,
					"retries_exhausted", snap.RetriesExhausted,
					"unsolicited", snap.Unsolicited,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
