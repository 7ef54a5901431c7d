package dispatch

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/PeterGrace/meshcore-companion-go/internal/command"
	"github.com/PeterGrace/meshcore-companion-go/internal/metrics"
	"github.com/PeterGrace/meshcore-companion-go/internal/protocol"
	"github.com/PeterGrace/meshcore-companion-go/internal/state"
)

// fakeSender records every frame the command API hands to the outbound
// side, mirroring command/api_test.go's fake.
type fakeSender struct {
	frames [][]byte
}

func (f *fakeSender) Enqueue(frame []byte) error {
	f.frames = append(f.frames, append([]byte{}, frame...))
	return nil
}

func newHarness(t *testing.T, nowMS int64) (*state.Store, *command.API, *fakeSender, *Dispatcher, chan protocol.Frame) {
	t.Helper()
	s := state.New()
	sender := &fakeSender{}
	clock := func() int64 { return nowMS }
	api := command.New(s, sender, clock)
	inbound := make(chan protocol.Frame, 16)
	d := New(s, api, inbound, clock)
	return s, api, sender, d, inbound
}

func frame(payload ...byte) protocol.Frame {
	return protocol.Frame{Delim: protocol.DelimRadioToHost, Payload: payload}
}

// TestSentThenConfirmed walks the full ack lifecycle: SendTxtMsg
// occupies the pending slot, a SENT response promotes it into the ack
// table under its ack code and frees the slot, and a SEND_CONFIRMED push
// removes the ack entry.
func TestSentThenConfirmed(t *testing.T) {
	s, api, _, d, _ := newHarness(t, 1_000)

	msg := command.SendTxtMsg{PubKeyPrefix: [6]byte{0x2C, 0x4B, 0xD0, 0x60, 0x10, 0x28}, Text: "hi"}
	if err := api.Submit(msg); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !s.HasPendingSlot() {
		t.Fatalf("expected pending slot after Submit")
	}

	ackCode := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	sentBody := append([]byte{0x00}, ackCode...)
	sentBody = append(sentBody, 0xE8, 0x03, 0x00, 0x00) // suggested_timeout_ms_le = 1000
	d.handle(frame(append([]byte{protocol.RespSent}, sentBody...)...))

	if s.HasPendingSlot() {
		t.Fatalf("expected pending slot cleared after SENT")
	}
	acks := s.SnapshotAcks()
	if len(acks) != 1 {
		t.Fatalf("ack table len = %d, want 1", len(acks))
	}

	var code state.AckCode
	copy(code[:], ackCode)
	d.handle(frame(append([]byte{protocol.PushSendConfirmed}, ackCode...)...))
	if len(s.SnapshotAcks()) != 0 {
		t.Fatalf("expected ack entry removed after SEND_CONFIRMED")
	}
}

// TestLoginResultUpdatesContact: after a CONTACT frame populates the
// directory, a LOGIN_SUCCESS push keyed by the contact's 6-byte prefix
// must flip its logged-in flag, and LOGIN_FAIL must flip it back.
func TestLoginResultUpdatesContact(t *testing.T) {
	s, _, _, d, _ := newHarness(t, 0)

	var pk state.PublicKey
	for i := range pk {
		pk[i] = byte(i + 1)
	}
	contactBody := make([]byte, 0, 32+1+1+1+64+32+4+4+4+4)
	contactBody = append(contactBody, pk[:]...)
	contactBody = append(contactBody, 0x01, 0x00, 0x00) // adv_type, flags, out_path_len
	contactBody = append(contactBody, make([]byte, 64)...)
	name := make([]byte, 32)
	copy(name, "alice")
	contactBody = append(contactBody, name...)
	contactBody = append(contactBody, 0, 0, 0, 0) // last_advert
	contactBody = append(contactBody, 0, 0, 0, 0) // lat
	contactBody = append(contactBody, 0, 0, 0, 0) // lon
	contactBody = append(contactBody, 0, 0, 0, 0) // lastmod

	d.handle(frame(append([]byte{protocol.RespContact}, contactBody...)...))
	c, ok := s.FindContactByFullKey(pk)
	if !ok {
		t.Fatalf("expected contact to be recorded")
	}
	if c.LoggedIn != state.LoginUnknown {
		t.Fatalf("LoggedIn = %v, want LoginUnknown before LOGIN_SUCCESS", c.LoggedIn)
	}

	prefix := pk.Prefix()
	loginBody := append([]byte{protocol.PushLoginSuccess, 0x00}, prefix[:]...)
	loginBody = append(loginBody, 0, 0, 0, 0, 0) // tag_le(4), new_permissions(1)
	d.handle(frame(loginBody...))
	c, ok = s.FindContactByFullKey(pk)
	if !ok || c.LoggedIn != state.LoginTrue {
		t.Fatalf("LoggedIn = %v, want LoginTrue after LOGIN_SUCCESS", c.LoggedIn)
	}

	failBody := append([]byte{protocol.PushLoginFail, 0x00}, prefix[:]...)
	d.handle(frame(failBody...))
	c, _ = s.FindContactByFullKey(pk)
	if c.LoggedIn != state.LoginFalse {
		t.Fatalf("LoggedIn = %v, want LoginFalse after LOGIN_FAIL", c.LoggedIn)
	}
}

// TestAdvertTriggersContactResync: an ADVERT push must issue
// GetContacts(since=watermark), producing the exact outbound frame
// `3C 05 00 04 44 33 22 11`.
func TestAdvertTriggersContactResync(t *testing.T) {
	s, _, sender, d, _ := newHarness(t, 0)
	s.SetWatermark(0x11223344)

	d.handle(frame(protocol.PushAdvert))

	if len(sender.frames) != 1 {
		t.Fatalf("frames sent = %d, want 1", len(sender.frames))
	}
	want := []byte{0x3C, 0x05, 0x00, protocol.CmdGetContacts, 0x44, 0x33, 0x22, 0x11}
	if string(sender.frames[0]) != string(want) {
		t.Fatalf("frame = % X, want % X", sender.frames[0], want)
	}
}

// TestCongestionAtDispatchBoundary exercises the same Congestion
// guarantee as the command package, but through the dispatcher's own API
// instance, confirming a second direct message cannot be submitted while
// the first awaits its SENT response.
func TestCongestionAtDispatchBoundary(t *testing.T) {
	_, api, sender, _, _ := newHarness(t, 0)

	msg := command.SendTxtMsg{PubKeyPrefix: [6]byte{1, 2, 3, 4, 5, 6}, Text: "hi"}
	if err := api.Submit(msg); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	err := api.Submit(msg)
	cmdErr, ok := err.(*state.CommandError)
	if !ok || cmdErr.Kind != state.ErrCongestion {
		t.Fatalf("second Submit: got %v, want Congestion", err)
	}
	if len(sender.frames) != 1 {
		t.Fatalf("frames sent = %d, want 1", len(sender.frames))
	}
}

// TestSetDeviceTimeErrSurfacesBadState: SetDeviceTime enqueues awaiting
// OK/ERR, and an ERR with sub-code BadState must surface as a BadState
// result on the result queue.
func TestSetDeviceTimeErrSurfacesBadState(t *testing.T) {
	s, api, _, d, _ := newHarness(t, 0)

	if err := api.Submit(command.SetDeviceTime{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.CommandQueueLen() != 1 {
		t.Fatalf("command queue len = %d, want 1", s.CommandQueueLen())
	}

	d.handle(frame(protocol.RespErr, protocol.ErrSubBadState))

	res, ok := s.PopResult()
	if !ok {
		t.Fatalf("expected a result to be pushed")
	}
	if res.Err == nil || res.Err.Kind != state.ErrBadState {
		t.Fatalf("result err = %v, want BadState", res.Err)
	}
	if _, ok := res.Cmd.(command.SetDeviceTime); !ok {
		t.Fatalf("result cmd = %T, want SetDeviceTime", res.Cmd)
	}
}

// TestDecodeResyncThenValidFrame: a bad-delimiter byte sequence must be
// dropped by the decoder, and the next well-formed frame must still
// dispatch normally once the serial actor resynchronises (here simulated
// by feeding the dispatcher only the frame that survives resync).
func TestDecodeResyncThenValidFrame(t *testing.T) {
	garbage := []byte{0xFF, 0xFF, 0xFF}
	_, residual, status := protocol.Decode(garbage)
	if status != protocol.StatusBadDelimiter {
		t.Fatalf("status = %v, want StatusBadDelimiter", status)
	}
	if residual != nil {
		t.Fatalf("residual = %v, want nil on bad delimiter", residual)
	}

	valid := protocol.Encode(protocol.DelimRadioToHost, []byte{protocol.RespOK})
	decoded, _, status := protocol.Decode(valid)
	if status != protocol.StatusOK {
		t.Fatalf("status = %v, want StatusOK", status)
	}

	s, api, _, d, _ := newHarness(t, 0)
	if err := api.Submit(command.Logout{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	d.handle(decoded)
	res, ok := s.PopResult()
	if !ok || res.Err != nil {
		t.Fatalf("expected a clean OK result, got ok=%v err=%v", ok, res.Err)
	}
}

// TestContactSync_EndOfContactsSetsWatermark exercises
// CONTACTS_START/CONTACT/END_OF_CONTACTS: the watermark must take the
// END_OF_CONTACTS payload's value regardless of how many CONTACT records
// preceded it.
func TestContactSync_EndOfContactsSetsWatermark(t *testing.T) {
	_, _, _, d, _ := newHarness(t, 0)
	s := d.store

	d.handle(frame(protocol.RespContactsStart))
	d.handle(frame(protocol.RespEndOfContacts, 0x04, 0x03, 0x02, 0x01))

	if got := s.Watermark(); got != 0x01020304 {
		t.Fatalf("watermark = %#x, want 0x01020304", got)
	}
}

// TestHandleCommandResult_UnsolicitedOK exercises the empty-queue guard:
// an OK/ERR with nothing in the command queue must be counted as
// unsolicited and must not panic.
func TestHandleCommandResult_UnsolicitedOK(t *testing.T) {
	_, _, _, d, _ := newHarness(t, 0)
	before := metrics.Snap().Unsolicited
	d.handle(frame(protocol.RespOK))
	if got := metrics.Snap().Unsolicited - before; got != 1 {
		t.Fatalf("unsolicited count delta = %d, want 1", got)
	}
}

// TestHandleExportContact_RecordsFullPayloadAsHex: the meshcore:// URL
// must be built from the full response payload after the opcode byte,
// i.e. the exported contact's public key followed by the advert blob,
// not the advert blob alone.
func TestHandleExportContact_RecordsFullPayloadAsHex(t *testing.T) {
	_, _, _, d, _ := newHarness(t, 0)

	var pk state.PublicKey
	for i := range pk {
		pk[i] = byte(i + 1)
	}
	advertBlob := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	body := append(append([]byte{}, pk[:]...), advertBlob...)

	d.handle(frame(append([]byte{protocol.RespExportContact}, body...)...))

	url, ok := d.store.Export(pk)
	if !ok {
		t.Fatalf("expected an export URL to be recorded for the contact's public key")
	}
	want := "meshcore://" + hex.EncodeToString(body)
	if url != want {
		t.Fatalf("export URL = %q, want %q", url, want)
	}
}

// TestRetrySweep_ResendsOnThirdAttemptThenExhausts exercises the exact
// retry boundary: an envelope at Attempt==2 (its third send) that has
// timed out must still be resent once more, with Attempt incremented to
// 3; only once an envelope at Attempt==3 is swept is it dropped outright,
// with no further resend.
func TestRetrySweep_ResendsOnThirdAttemptThenExhausts(t *testing.T) {
	s, api, sender, d, _ := newHarness(t, 0)

	msg := command.SendTxtMsg{PubKeyPrefix: [6]byte{9, 9, 9, 9, 9, 9}, Text: "retry-me"}
	if err := api.Submit(msg); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ackCode := []byte{1, 2, 3, 4}
	sentBody := append([]byte{0x00}, ackCode...)
	sentBody = append(sentBody, 0x01, 0x00, 0x00, 0x00) // suggested_timeout_ms_le = 1
	d.handle(frame(append([]byte{protocol.RespSent}, sentBody...)...))

	acks := s.SnapshotAcks()
	var code state.AckCode
	copy(code[:], ackCode)
	env := acks[code]
	env.Msg.Attempt = 2
	env.InsertedAtMS = 0
	s.DropAck(code)
	s.ReinsertAck(code, env)

	d.now = func() int64 { return 1_000 } // far past InsertedAtMS(0)+timeout(1)

	before := len(sender.frames)
	d.retrySweep()

	if len(s.SnapshotAcks()) != 0 {
		t.Fatalf("expected the Attempt==2 entry to be dropped from the ack table after resend")
	}
	if len(sender.frames) != before+1 {
		t.Fatalf("expected exactly one resend frame for the third attempt, got %d new frames", len(sender.frames)-before)
	}
	if !s.HasPendingSlot() {
		t.Fatalf("expected the third-attempt resend to occupy the pending slot")
	}

	// Promote the resend (which carries Attempt=3) straight into the ack
	// table without going through another SENT frame, to isolate the
	// exhaustion boundary from the resend path just exercised above.
	var code2 state.AckCode
	copy(code2[:], []byte{5, 6, 7, 8})
	s.ReinsertAck(code2, state.AckEnvelope{
		Msg:          state.PendingMessage{Text: "retry-me", Attempt: maxAttempts, TimeoutMS: 1},
		InsertedAtMS: 0,
	})

	before = len(sender.frames)
	d.retrySweep()

	if len(s.SnapshotAcks()) != 0 {
		t.Fatalf("expected the Attempt==3 entry to be dropped")
	}
	if len(sender.frames) != before {
		t.Fatalf("expected no resend once attempts are exhausted")
	}
}

// TestRetrySweep_ResendsPastTimeout: an envelope past its suggested
// timeout must be dropped from the ack table and resubmitted as a fresh
// SendTxtMsg with Attempt incremented.
func TestRetrySweep_ResendsPastTimeout(t *testing.T) {
	s, api, sender, d, _ := newHarness(t, 0)

	msg := command.SendTxtMsg{PubKeyPrefix: [6]byte{5, 5, 5, 5, 5, 5}, Text: "slow"}
	if err := api.Submit(msg); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ackCode := []byte{7, 7, 7, 7}
	sentBody := append([]byte{0x00}, ackCode...)
	sentBody = append(sentBody, 0x0A, 0x00, 0x00, 0x00) // timeout = 10ms
	d.handle(frame(append([]byte{protocol.RespSent}, sentBody...)...))

	d.now = func() int64 { return 1_000 } // now far past InsertedAtMS(0)+timeout(10)

	beforeFrames := len(sender.frames)
	d.retrySweep()

	if len(s.SnapshotAcks()) != 0 {
		t.Fatalf("expected timed-out ack entry to be dropped")
	}
	if len(sender.frames) != beforeFrames+1 {
		t.Fatalf("expected exactly one resend frame, got %d new frames", len(sender.frames)-beforeFrames)
	}
	if !s.HasPendingSlot() {
		t.Fatalf("expected resend to reoccupy the pending slot")
	}
}

// TestRetrySweep_LeavesFreshEnvelopeAlone confirms an ack entry still
// within its timeout window survives a sweep untouched.
func TestRetrySweep_LeavesFreshEnvelopeAlone(t *testing.T) {
	s, api, sender, d, _ := newHarness(t, 0)

	msg := command.SendTxtMsg{PubKeyPrefix: [6]byte{3, 3, 3, 3, 3, 3}, Text: "fresh"}
	if err := api.Submit(msg); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ackCode := []byte{8, 8, 8, 8}
	sentBody := append([]byte{0x00}, ackCode...)
	sentBody = append(sentBody, 0xE8, 0x03, 0x00, 0x00) // timeout = 1000ms
	d.handle(frame(append([]byte{protocol.RespSent}, sentBody...)...))

	before := len(sender.frames)
	d.retrySweep()

	if len(s.SnapshotAcks()) != 1 {
		t.Fatalf("expected the untimed-out entry to remain")
	}
	if len(sender.frames) != before {
		t.Fatalf("expected no resend for a fresh envelope")
	}
}

// TestRun_ProcessesInboundAndStopsOnCancel confirms Run drains the
// inbound channel and returns promptly once its context is cancelled.
func TestRun_ProcessesInboundAndStopsOnCancel(t *testing.T) {
	s, _, _, d, inbound := newHarness(t, 0)
	inbound <- frame(protocol.RespOK)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if n := len(inbound); n != 0 {
		t.Fatalf("inbound frames left undrained = %d, want 0", n)
	}
	_ = s
}
