// Package dispatch demultiplexes inbound radio frames by opcode,
// correlates them with pending commands, and drives retransmission of
// unacknowledged direct text messages.
package dispatch

import (
	"context"
	"time"

	"github.com/PeterGrace/meshcore-companion-go/internal/command"
	"github.com/PeterGrace/meshcore-companion-go/internal/logging"
	"github.com/PeterGrace/meshcore-companion-go/internal/metrics"
	"github.com/PeterGrace/meshcore-companion-go/internal/protocol"
	"github.com/PeterGrace/meshcore-companion-go/internal/state"
)

const retrySweepInterval = 250 * time.Millisecond

// maxAttempts bounds retransmission of a direct text message: an ack-table
// envelope whose Attempt has reached maxAttempts is dropped with a warning
// instead of being resent, so a message is sent at most four times (the
// initial send at Attempt 0 plus resends at Attempts 1 through 3).
const maxAttempts = 3

// Clock returns the current wall-clock time in unix milliseconds.
type Clock func() int64

// Dispatcher is the long-running task that consumes inbound frames,
// updates the shared store, and triggers follow-up commands.
type Dispatcher struct {
	store   *state.Store
	api     *command.API
	inbound <-chan protocol.Frame
	now     Clock
}

// New builds a Dispatcher. inbound is the receive end the serial actor
// publishes decoded frames onto.
func New(store *state.Store, api *command.API, inbound <-chan protocol.Frame, now Clock) *Dispatcher {
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	return &Dispatcher{store: store, api: api, inbound: inbound, now: now}
}

// Run blocks processing inbound frames and running the retry sweep until
// ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(retrySweepInterval)
	defer ticker.Stop()

	for {
		d.drainInbound(ctx)

		select {
		case <-ctx.Done():
			return
		default:
		}

		d.retrySweep()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drainInbound receives and processes every currently-queued frame, one at
// a time, returning without blocking once the channel is empty. State
// mutation takes its own narrow per-call locks; no lock is held across
// frames.
func (d *Dispatcher) drainInbound(ctx context.Context) {
	for {
		select {
		case frame, ok := <-d.inbound:
			if !ok {
				return
			}
			d.handle(frame)
		case <-ctx.Done():
			return
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(frame protocol.Frame) {
	if len(frame.Payload) == 0 {
		metrics.IncMalformed()
		logging.L().Warn("empty_payload_frame")
		return
	}
	opcode := frame.Payload[0]
	body := frame.Payload[1:]

	switch opcode {
	case protocol.RespOK:
		d.handleCommandResult(nil)
	case protocol.RespErr:
		d.handleCommandResult(errSubCode(body))
	case protocol.RespSent:
		d.handleSent(body)
	case protocol.PushSendConfirmed:
		d.handleSendConfirmed(body)
	case protocol.RespSelfInfo:
		d.handleSelfInfo(body)
	case protocol.RespDeviceInfo:
		d.handleDeviceInfo(body)
	case protocol.RespBattAndStorage:
		d.handleBattAndStorage(body)
	case protocol.RespCurrTime:
		d.handleCurrTime(body)
	case protocol.RespTuningParams:
		d.handleTuningParams(body)
	case protocol.RespContactsStart:
		// No directory-wide action; individual Contact frames follow.
	case protocol.RespContact:
		d.handleContact(body)
	case protocol.RespEndOfContacts:
		d.handleEndOfContacts(body)
	case protocol.PushAdvert, protocol.PushPathUpdated:
		d.triggerContactResync()
	case protocol.PushLoginSuccess:
		d.handleLoginResult(body, true)
	case protocol.PushLoginFail:
		d.handleLoginResult(body, false)
	case protocol.RespContactMsgRecv:
		d.handleContactMsg(body, false)
	case protocol.RespContactMsgV3:
		d.handleContactMsg(body, true)
	case protocol.RespChannelMsgRecv:
		d.handleChannelMsg(body, false)
	case protocol.RespChannelMsgV3:
		d.handleChannelMsg(body, true)
	case protocol.PushMsgWaiting:
		d.triggerSyncNextMessage()
	case protocol.RespNoMoreMessages:
		// End of the radio's message queue; nothing to do.
	case protocol.RespExportContact:
		d.handleExportContact(body)
	case protocol.PushLogRxData:
		d.handleLogRxData(body)
	default:
		logging.L().Warn("unknown_opcode", "opcode", opcode)
	}
}

// triggerContactResync issues GetContacts(since=watermark) in response to
// an ADVERT or PATH_UPDATED push.
func (d *Dispatcher) triggerContactResync() {
	since := d.store.Watermark()
	if err := d.api.Submit(command.GetContacts{Since: since}); err != nil {
		logging.L().Warn("contact_resync_failed", "error", err)
	}
}

// triggerSyncNextMessage drains the radio's queued message in response to
// an incoming text or a message-waiting push.
func (d *Dispatcher) triggerSyncNextMessage() {
	if err := d.api.Submit(command.SyncNextMessage{}); err != nil {
		logging.L().Warn("sync_next_message_failed", "error", err)
	}
}
