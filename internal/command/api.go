package command

import (
	"time"

	"github.com/PeterGrace/meshcore-companion-go/internal/metrics"
	"github.com/PeterGrace/meshcore-companion-go/internal/protocol"
	"github.com/PeterGrace/meshcore-companion-go/internal/state"
)

// Sender is the outbound side of the serial actor. Enqueue must not block
// the caller for long; overflow is signalled by an error rather than a
// deadlock.
type Sender interface {
	Enqueue(frame []byte) error
}

// Clock returns the current wall-clock time in unix milliseconds. Tests
// substitute a deterministic clock.
type Clock func() int64

// API is the single entry point for submitting commands. It is safe for
// concurrent use; all mutable state lives in the Store.
type API struct {
	store *state.Store
	out   Sender
	now   Clock
}

// New builds an API bound to store and out. now may be nil to default to
// wall-clock time.
func New(store *state.Store, out Sender, now Clock) *API {
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	return &API{store: store, out: out, now: now}
}

// eligible reports whether cmd enqueues on the command queue awaiting an
// OK/ERR frame. Commands answered by a dedicated response opcode (or by
// nothing at all) must not enqueue.
func eligible(cmd state.Command) bool {
	switch c := cmd.(type) {
	case SendTxtMsg, GetContacts, GetDeviceTime, GetBattAndStorage, ExportContact,
		AppStart, DeviceQuery, SyncNextMessage, Reboot, SendLogin,
		GetCustomVars, GetTuningParams, GetStats, SendStatusReq:
		return false
	case Raw:
		return c.Eligible
	default:
		return true
	}
}

// Submit forms cmd's wire frame, pushes it onto the outbound channel, and
// — if cmd is OK/ERR-eligible — enqueues it on the command queue awaiting
// the radio's response. Returns Congestion synchronously if cmd is a
// SendTxtMsg and another direct message is already in flight.
func (a *API) Submit(cmd state.Command) error {
	if msg, ok := cmd.(SendTxtMsg); ok {
		pending := state.PendingMessage{
			TxtType:         msg.TxtType,
			Attempt:         msg.Attempt,
			SenderTimestamp: msg.SenderTimestamp,
			PubKeyPrefix:    msg.PubKeyPrefix,
			Text:            msg.Text,
			LastAttemptMS:   a.now(),
		}
		if err := a.store.ReserveSlot(pending); err != nil {
			metrics.IncCongestionRefusal()
			return err
		}
	}

	code, body, err := build(cmd)
	if err != nil {
		return err
	}
	if _, ok := cmd.(SetDeviceTime); ok {
		body = appendU64LE(nil, uint64(a.now()/1000))
	}

	frame := protocol.Encode(protocol.DelimHostToRadio, append([]byte{code}, body...))
	if err := a.out.Enqueue(frame); err != nil {
		if _, ok := cmd.(SendTxtMsg); ok {
			a.store.ClearSlot()
		}
		metrics.IncError(metrics.ErrSerialWrite)
		return err
	}
	metrics.IncCommandSent(cmd.Kind())

	if eligible(cmd) {
		a.store.PushCommand(cmd)
	}
	return nil
}
