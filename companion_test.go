package companion

import (
	"testing"

	"github.com/PeterGrace/meshcore-companion-go/internal/command"
	"github.com/PeterGrace/meshcore-companion-go/internal/state"
)

func TestStartIsIdempotent(t *testing.T) {
	c := New("/dev/null")
	defer c.Stop()

	if err := c.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := c.Start(); err != ErrAlreadyStarted {
		t.Fatalf("second Start: got %v, want ErrAlreadyStarted", err)
	}
}

func TestCommandBeforeStartStillQueues(t *testing.T) {
	c := New("/dev/null")
	defer c.Stop()

	if err := c.Command(command.AppStart{}); err != nil {
		t.Fatalf("Command: %v", err)
	}
	if _, ok := c.PopResult(); ok {
		t.Fatalf("expected no result queued yet for an eligible-false command")
	}
}

func TestObserversOnEmptyStore(t *testing.T) {
	c := New("/dev/null")
	defer c.Stop()

	if _, ok := c.PopMessage(); ok {
		t.Fatalf("expected no inbound message")
	}
	if _, ok := c.GetSelfInfo(); ok {
		t.Fatalf("expected no self info")
	}
	if _, ok := c.GetPublicKey(); ok {
		t.Fatalf("expected no public key")
	}
	if got := c.GetContacts(); len(got) != 0 {
		t.Fatalf("expected no contacts, got %d", len(got))
	}
	if _, ok := c.FindContactByName("nobody"); ok {
		t.Fatalf("expected no match")
	}
}

func TestCongestionSurfacesSynchronously(t *testing.T) {
	c := New("/dev/null")
	defer c.Stop()

	msg := command.SendTxtMsg{TxtType: 0, PubKeyPrefix: [6]byte{1, 2, 3, 4, 5, 6}, Text: "hi"}
	if err := c.Command(msg); err != nil {
		t.Fatalf("first send: %v", err)
	}
	err := c.Command(msg)
	cmdErr, ok := err.(*state.CommandError)
	if !ok || cmdErr.Kind != state.ErrCongestion {
		t.Fatalf("second send: got %v, want congestion error", err)
	}
}
