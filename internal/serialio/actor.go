// Package serialio owns the serial port. A single Actor goroutine both
// reads and writes it; no other task touches the hardware.
package serialio

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/PeterGrace/meshcore-companion-go/internal/logging"
	"github.com/PeterGrace/meshcore-companion-go/internal/metrics"
	"github.com/PeterGrace/meshcore-companion-go/internal/protocol"
)

const (
	baudRate            = 115200
	readTimeout         = 100 * time.Millisecond
	scratchBufSize      = 1024
	openRetryDelay      = 5 * time.Second
	innerLoopRetryDelay = 1 * time.Second
	cooperativePause    = 10 * time.Millisecond
	outboundQueueSize   = 64
)

// ErrTxOverflow is returned by Enqueue when the outbound buffer is full.
var ErrTxOverflow = errors.New("serialio: outbound queue full")

// Actor is the single task that owns the serial port handle. It
// implements command.Sender.
type Actor struct {
	devicePath string
	openFn     OpenFunc
	outbound   chan []byte
	inbound    chan<- protocol.Frame
	sleepFn    func(ctx context.Context, d time.Duration) bool
}

// NewActor builds an Actor for devicePath. Decoded frames are published
// on inbound; the dispatcher owns the receive end.
func NewActor(devicePath string, inbound chan<- protocol.Frame) *Actor {
	a := &Actor{
		devicePath: devicePath,
		openFn:     Open,
		outbound:   make(chan []byte, outboundQueueSize),
		inbound:    inbound,
	}
	a.sleepFn = a.defaultSleep
	return a
}

// Enqueue queues a wire-ready frame for transmission without blocking,
// reporting ErrTxOverflow if the outbound buffer is full.
func (a *Actor) Enqueue(frame []byte) error {
	select {
	case a.outbound <- frame:
		return nil
	default:
		metrics.IncError(metrics.ErrSerialOverflow)
		return ErrTxOverflow
	}
}

// Run is the outer reconnect loop: open at 115200 baud with a 100 ms
// read timeout; on open failure sleep 5 s and retry; on inner loop exit
// sleep 1 s and retry. Blocks until ctx is cancelled.
func (a *Actor) Run(ctx context.Context) {
	for ctx.Err() == nil {
		port, err := a.openFn(a.devicePath, baudRate, readTimeout)
		if err != nil {
			metrics.IncError(metrics.ErrSerialOpen)
			logging.L().Warn("serial_open_failed", "device", a.devicePath, "error", err)
			if !a.sleepFn(ctx, openRetryDelay) {
				return
			}
			continue
		}
		logging.L().Info("serial_open", "device", a.devicePath)
		a.runInner(ctx, port)
		_ = port.Close()
		if !a.sleepFn(ctx, innerLoopRetryDelay) {
			return
		}
	}
}

func (a *Actor) defaultSleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// runInner is the per-connection cooperative loop: drain outbound, read
// once, decode repeatedly, cooperative pause.
func (a *Actor) runInner(ctx context.Context, port Port) {
	buf := make([]byte, scratchBufSize)
	var acc []byte

	for ctx.Err() == nil {
		if !a.drainOutbound(port) {
			return
		}

		n, err := port.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
		}
		if err != nil && !transientReadError(err) {
			var perr *os.PathError
			if errors.As(err, &perr) {
				logging.L().Warn("serial_device_removed", "error", err)
				return
			}
			metrics.IncError(metrics.ErrSerialRead)
			logging.L().Warn("serial_read_error", "error", err)
			return
		}

		acc = a.decodeAll(ctx, acc)
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(cooperativePause):
		}
	}
}

// drainOutbound writes every currently-queued outbound frame without
// blocking. It reports false (triggering reconnection) on a write error.
func (a *Actor) drainOutbound(port Port) bool {
	for {
		select {
		case frame := <-a.outbound:
			if _, err := port.Write(frame); err != nil {
				metrics.IncError(metrics.ErrSerialWrite)
				logging.L().Warn("serial_write_error", "error", err)
				return false
			}
			metrics.IncFramesTx()
		default:
			return true
		}
	}
}

// decodeAll repeatedly decodes acc, publishing every complete frame, and
// returns the remaining residual bytes.
func (a *Actor) decodeAll(ctx context.Context, acc []byte) []byte {
	for {
		frame, residual, status := protocol.Decode(acc)
		switch status {
		case protocol.StatusOK:
			metrics.IncFramesRx()
			select {
			case a.inbound <- frame:
			case <-ctx.Done():
				return nil
			}
			acc = residual
			if acc == nil {
				return nil
			}
		case protocol.StatusShort:
			return acc
		default: // StatusBadDelimiter, StatusTooLong
			metrics.IncMalformed()
			metrics.IncError(metrics.ErrFrameDecode)
			return nil
		}
	}
}

// transientReadError reports whether err is a benign EOF observed on
// some platforms' serial drivers when the read timeout expires.
func transientReadError(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
