package dispatch

import (
	"github.com/PeterGrace/meshcore-companion-go/internal/command"
	"github.com/PeterGrace/meshcore-companion-go/internal/logging"
	"github.com/PeterGrace/meshcore-companion-go/internal/metrics"
)

// retrySweep evaluates every ack-table entry once per pass: drop
// envelopes that have exhausted their attempt budget, resend
// envelopes past their suggested timeout, and leave the rest untouched.
// It never holds a store lock across the resend call into the Command
// API — SnapshotAcks copies the table up front, and the resend path below
// only takes the store's own narrow per-call locks.
func (d *Dispatcher) retrySweep() {
	acks := d.store.SnapshotAcks()
	metrics.SetAckTableSize(len(acks))
	metrics.SetCommandQueueDepth(d.store.CommandQueueLen())

	now := d.now()
	for code, env := range acks {
		msg := env.Msg
		switch {
		case msg.Attempt >= maxAttempts:
			d.store.DropAck(code)
			metrics.IncRetryExhausted()
			logging.L().Warn("retry_exhausted", "text", msg.Text, "attempt", msg.Attempt)

		case now-env.InsertedAtMS > int64(msg.TimeoutMS):
			d.store.DropAck(code)
			metrics.IncRetrySent()
			resend := command.SendTxtMsg{
				TxtType:         msg.TxtType,
				Attempt:         msg.Attempt + 1,
				SenderTimestamp: msg.SenderTimestamp,
				PubKeyPrefix:    msg.PubKeyPrefix,
				Text:            msg.Text,
			}
			if err := d.api.Submit(resend); err != nil {
				logging.L().Warn("retry_resend_failed", "error", err)
			}

		default:
			// still within its ack window; nothing to do (SnapshotAcks
			// returned a copy, so no reinsert is needed for entries we
			// don't touch).
		}
	}
}
