// Package companion is the library facade: construct it against a serial
// device, start it, submit commands, and observe inbound traffic and
// command outcomes.
package companion

import (
	"context"
	"sync"

	"github.com/PeterGrace/meshcore-companion-go/internal/command"
	"github.com/PeterGrace/meshcore-companion-go/internal/dispatch"
	"github.com/PeterGrace/meshcore-companion-go/internal/logging"
	"github.com/PeterGrace/meshcore-companion-go/internal/protocol"
	"github.com/PeterGrace/meshcore-companion-go/internal/serialio"
	"github.com/PeterGrace/meshcore-companion-go/internal/state"
)

// inboundBuffer sizes the channel the serial actor publishes decoded
// frames onto; the dispatcher drains it every pass.
const inboundBuffer = 256

// ErrAlreadyStarted is returned by Start when called more than once.
var ErrAlreadyStarted = &state.CommandError{Kind: state.ErrBadState}

// Companion owns a serial actor and a dispatcher wired to one shared
// Store, and exposes the Command API plus read-only observers.
type Companion struct {
	store *state.Store
	api   *command.API
	actor *serialio.Actor
	disp  *dispatch.Dispatcher

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// New allocates state and channels for a radio attached at devicePath. It
// does not open the port or start any task; call Start for that.
func New(devicePath string) *Companion {
	store := state.New()
	inbound := make(chan protocol.Frame, inboundBuffer)
	actor := serialio.NewActor(devicePath, inbound)
	api := command.New(store, actor, nil)
	disp := dispatch.New(store, api, inbound, nil)

	return &Companion{store: store, api: api, actor: actor, disp: disp}
}

// Start spawns the serial actor and dispatcher. Calling it twice returns
// ErrAlreadyStarted rather than spawning a second pair of tasks.
func (c *Companion) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.started = true

	go c.actor.Run(ctx)
	go c.disp.Run(ctx)
	logging.L().Info("companion_started")
	return nil
}

// Stop cancels the serial actor and dispatcher tasks. It is a no-op if
// Start was never called.
func (c *Companion) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.cancel == nil {
		return
	}
	c.cancel()
}

// Command forwards cmd to the Command API.
func (c *Companion) Command(cmd state.Command) error {
	return c.api.Submit(cmd)
}

// PopMessage removes and returns the oldest undrained inbound message.
func (c *Companion) PopMessage() (state.InboundMessage, bool) {
	return c.store.PopInbound()
}

// PopResult removes and returns the oldest unobserved command outcome.
func (c *Companion) PopResult() (state.Result, bool) {
	return c.store.PopResult()
}

// PeekResult returns the oldest unobserved result for the given command
// kind without removing it from the queue.
func (c *Companion) PeekResult(kind state.CommandKind) (state.Result, bool) {
	return c.store.PeekResult(kind)
}

// GetContacts returns a snapshot of the known contact directory.
func (c *Companion) GetContacts() []state.Contact {
	return c.store.Contacts()
}

// FindContactByName returns the first contact whose advertised name
// matches exactly.
func (c *Companion) FindContactByName(name string) (state.Contact, bool) {
	return c.store.FindContactByName(name)
}

// FindContactByKeyPrefix returns the first contact whose key prefix
// matches.
func (c *Companion) FindContactByKeyPrefix(prefix [6]byte) (state.Contact, bool) {
	return c.store.FindContactByKeyPrefix(prefix)
}

// FindContactByFullKey looks up a contact by its exact PublicKey.
func (c *Companion) FindContactByFullKey(pk state.PublicKey) (state.Contact, bool) {
	return c.store.FindContactByFullKey(pk)
}

// RetrieveExport returns a previously recorded meshcore:// export URL for
// pk, if one has been received.
func (c *Companion) RetrieveExport(pk state.PublicKey) (string, bool) {
	return c.store.Export(pk)
}

// GetSelfInfo returns the cached SELF_INFO record, if one has arrived.
func (c *Companion) GetSelfInfo() (state.SelfInfo, bool) {
	return c.store.SelfInfo()
}

// GetPublicKey returns this node's own public key, sourced from the
// cached SELF_INFO record.
func (c *Companion) GetPublicKey() (state.PublicKey, bool) {
	info, ok := c.store.SelfInfo()
	if !ok {
		return state.PublicKey{}, false
	}
	return info.PublicKey, true
}

// GetTuningParameters returns the cached TUNING_PARAMS record, if one has
// arrived.
func (c *Companion) GetTuningParameters() (state.TuningParameters, bool) {
	return c.store.TuningParameters()
}

// GetDeviceInfo returns the cached DEVICE_INFO record, if one has
// arrived.
func (c *Companion) GetDeviceInfo() (state.DeviceInfo, bool) {
	return c.store.DeviceInfo()
}

// GetBattAndStorage returns the cached BATT_AND_STORAGE record, if one
// has arrived.
func (c *Companion) GetBattAndStorage() (state.BattAndStorage, bool) {
	return c.store.BattAndStorage()
}

// GetDeviceTimeUnixSeconds returns the cached CURR_TIME value, if one has
// arrived.
func (c *Companion) GetDeviceTimeUnixSeconds() (uint32, bool) {
	return c.store.DeviceTimeUnixSeconds()
}
