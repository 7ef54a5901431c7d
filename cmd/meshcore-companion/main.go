// Command meshcore-companion is a minimal example driver for the
// companion library: it starts the radio link, identifies itself,
// requests the contact directory, broadcasts a greeting on channel 0,
// then polls for inbound messages and command results until interrupted.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/PeterGrace/meshcore-companion-go/internal/command"
	"github.com/PeterGrace/meshcore-companion-go/internal/coords"
	"github.com/PeterGrace/meshcore-companion-go/internal/metrics"

	companion "github.com/PeterGrace/meshcore-companion-go"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const pollInterval = 250 * time.Millisecond

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("meshcore-companion %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	started := &atomic.Bool{}
	metrics.SetReadinessFunc(started.Load)

	c := companion.New(cfg.device)
	if err := c.Start(); err != nil {
		l.Error("companion_start_failed", "error", err)
		os.Exit(1)
	}
	defer c.Stop()
	started.Store(true)

	l.Info("companion_started", "device", cfg.device)
	runStartupSequence(c, l, cfg.channelText)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	wg.Add(1)
	go func() {
		defer wg.Done()
		pollLoop(ctx, c, l)
	}()

	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	wg.Wait()
}

// runStartupSequence issues the fixed AppStart/DeviceQuery/GetContacts
// handshake and, if channelText is non-empty, a channel greeting.
func runStartupSequence(c *companion.Companion, l *slog.Logger, channelText string) {
	if err := c.Command(command.AppStart{AppVer: 1, AppName: "meshcore-companion"}); err != nil {
		l.Error("app_start_failed", "error", err)
	}
	time.Sleep(1 * time.Second)

	if err := c.Command(command.DeviceQuery{AppTargetVer: 3}); err != nil {
		l.Error("device_query_failed", "error", err)
	}
	time.Sleep(1 * time.Second)

	if err := c.Command(command.GetContacts{Since: 0}); err != nil {
		l.Error("get_contacts_failed", "error", err)
	}

	if channelText == "" {
		return
	}
	msg := command.SendChannelTxtMsg{
		TxtType:         0,
		ChannelIdx:      0,
		SenderTimestamp: uint32(time.Now().Unix()),
		Text:            channelText,
	}
	if err := c.Command(msg); err != nil {
		l.Error("send_channel_txt_failed", "error", err)
	}
}

// pollLoop drains the inbound message and result queues every
// pollInterval until ctx is cancelled, logging each as it arrives.
func pollLoop(ctx context.Context, c *companion.Companion, l *slog.Logger) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			drainMessages(c, l)
			drainResults(c, l)
		}
	}
}

func drainMessages(c *companion.Companion, l *slog.Logger) {
	for {
		msg, ok := c.PopMessage()
		if !ok {
			return
		}
		switch {
		case msg.IsChannel:
			l.Info("channel_message", "channel", msg.ChannelID, "text", msg.Text)
		default:
			if ct, ok := c.FindContactByKeyPrefix(msg.PubKeyPrefix); ok {
				pos := coords.String(coords.FromMicroDegrees(ct.Lat, ct.Lon))
				l.Info("contact_message", "from", ct.Name, "position", pos, "text", msg.Text)
				continue
			}
			l.Info("contact_message", "from_prefix", hex.EncodeToString(msg.PubKeyPrefix[:]), "text", msg.Text)
		}
	}
}

func drainResults(c *companion.Companion, l *slog.Logger) {
	for {
		res, ok := c.PopResult()
		if !ok {
			return
		}
		if res.Err != nil {
			l.Warn("command_failed", "command", res.Cmd.Kind(), "error", res.Err.Kind)
			continue
		}
		l.Info("command_ok", "command", res.Cmd.Kind())
	}
}
