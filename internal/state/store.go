package state

import "sync"

// Store is the single logical state store shared between the dispatcher,
// the command API, and the facade's observer methods; the serial actor
// never touches it. It is never replaced, only mutated, and is guarded by
// one RWMutex.
type Store struct {
	mu sync.RWMutex

	contacts  map[PublicKey]*Contact
	watermark uint32

	pendingSlot *PendingMessage
	ackTable    map[AckCode]AckEnvelope

	commandQueue []Command
	resultQueue  []Result

	inbound []InboundMessage

	selfInfo   *SelfInfo
	deviceInfo *DeviceInfo
	tuning     *TuningParameters
	battStore  *BattAndStorage
	deviceTime *uint32

	exports map[PublicKey]string
}

// New allocates an empty Store.
func New() *Store {
	return &Store{
		contacts: make(map[PublicKey]*Contact),
		ackTable: make(map[AckCode]AckEnvelope),
		exports:  make(map[PublicKey]string),
	}
}

// --- Contacts ---

// UpsertContact creates or overwrites the contact keyed by its full
// PublicKey, as happens when a CONTACT frame arrives during a sync.
func (s *Store) UpsertContact(c Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc := c
	s.contacts[c.PublicKey] = &cc
}

// Contacts returns a snapshot copy of the contact directory.
func (s *Store) Contacts() []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, *c)
	}
	return out
}

// FindContactByFullKey looks up a contact by its exact PublicKey.
func (s *Store) FindContactByFullKey(pk PublicKey) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[pk]
	if !ok {
		return Contact{}, false
	}
	return *c, true
}

// FindContactByName returns the first contact whose advertised name
// matches exactly.
func (s *Store) FindContactByName(name string) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contacts {
		if c.Name == name {
			return *c, true
		}
	}
	return Contact{}, false
}

// FindContactByKeyPrefix returns the first contact whose key prefix
// matches. Prefix matches are routing/login annotations only; full-key
// equality is what identifies a contact.
func (s *Store) FindContactByKeyPrefix(prefix [6]byte) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contacts {
		if c.PublicKey.Prefix() == prefix {
			return *c, true
		}
	}
	return Contact{}, false
}

// SetLoginByPrefix mutates the logged-in flag of the contact matching
// prefix in place, returning false if no contact matches.
func (s *Store) SetLoginByPrefix(prefix [6]byte, loggedIn bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.contacts {
		if c.PublicKey.Prefix() == prefix {
			if loggedIn {
				c.LoggedIn = LoginTrue
			} else {
				c.LoggedIn = LoginFalse
			}
			return true
		}
	}
	return false
}

// Watermark returns the newest lastmod timestamp across known contacts,
// used as `since` on GetContacts to sync incrementally.
func (s *Store) Watermark() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermark
}

// SetWatermark updates the watermark (called on END_OF_CONTACTS).
func (s *Store) SetWatermark(ts uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermark = ts
}

// --- Pending single-in-flight message + ack table ---

// ErrCongested is returned by ReserveSlot when a message is already
// awaiting its SENT response.
var ErrCongested = &CommandError{Kind: ErrCongestion}

// ReserveSlot deposits msg into the single-slot holding area, or fails
// synchronously with ErrCongested if the slot is already occupied. At
// most one direct text message may be in flight at a time.
func (s *Store) ReserveSlot(msg PendingMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingSlot != nil {
		return ErrCongested
	}
	m := msg
	s.pendingSlot = &m
	return nil
}

// PromoteSlotToAck moves the pending slot's message into the ack table
// under ackCode, stamping its suggested timeout, and clears the slot. It
// reports false if the slot was empty (the SENT was unsolicited, e.g. a
// login; the caller logs and ignores it).
func (s *Store) PromoteSlotToAck(code AckCode, timeoutMS uint32, nowMS int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingSlot == nil {
		return false
	}
	msg := *s.pendingSlot
	msg.TimeoutMS = timeoutMS
	s.ackTable[code] = AckEnvelope{Msg: msg, InsertedAtMS: nowMS}
	s.pendingSlot = nil
	return true
}

// ClearSlot releases the holding slot without promoting it, used when the
// outbound write fails after the slot was reserved.
func (s *Store) ClearSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingSlot = nil
}

// HasPendingSlot reports whether a message is currently occupying the
// single in-flight slot.
func (s *Store) HasPendingSlot() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingSlot != nil
}

// RemoveAck deletes code from the ack table (SEND_CONFIRMED handling). It
// reports whether an entry was present.
func (s *Store) RemoveAck(code AckCode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ackTable[code]; !ok {
		return false
	}
	delete(s.ackTable, code)
	return true
}

// SnapshotAcks returns a copy of the ack table for the dispatcher's retry
// sweep to iterate without holding the lock.
func (s *Store) SnapshotAcks() map[AckCode]AckEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[AckCode]AckEnvelope, len(s.ackTable))
	for k, v := range s.ackTable {
		out[k] = v
	}
	return out
}

// DropAck removes code unconditionally (used when the retry sweep gives
// up on, or re-sends, an envelope).
func (s *Store) DropAck(code AckCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ackTable, code)
}

// ReinsertAck stores env under code, replacing any entry already present
// for that code. The retry sweep does not call it: entries the sweep leaves
// alone simply stay in the table.
func (s *Store) ReinsertAck(code AckCode, env AckEnvelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ackTable[code] = env
}

// --- Command queue / result queue ---

// PushCommand enqueues an OK/ERR-eligible command.
func (s *Store) PushCommand(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandQueue = append(s.commandQueue, cmd)
}

// PopCommand removes and returns the head of the command queue.
func (s *Store) PopCommand() (Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.commandQueue) == 0 {
		return nil, false
	}
	cmd := s.commandQueue[0]
	s.commandQueue = s.commandQueue[1:]
	return cmd, true
}

// CommandQueueLen reports the number of commands awaiting an OK/ERR.
func (s *Store) CommandQueueLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.commandQueue)
}

// PushResult enqueues a command outcome for the caller to observe.
func (s *Store) PushResult(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultQueue = append(s.resultQueue, r)
}

// PopResult removes and returns the oldest unobserved result.
func (s *Store) PopResult() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.resultQueue) == 0 {
		return Result{}, false
	}
	r := s.resultQueue[0]
	s.resultQueue = s.resultQueue[1:]
	return r, true
}

// PeekResult returns the oldest unobserved result for the given command
// kind, without removing it from the queue.
func (s *Store) PeekResult(kind CommandKind) (Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.resultQueue {
		if r.Cmd != nil && r.Cmd.Kind() == kind {
			return r, true
		}
	}
	return Result{}, false
}

// --- Inbound message queue ---

// PushInbound appends a received text message.
func (s *Store) PushInbound(m InboundMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, m)
}

// PopInbound removes and returns the oldest undrained inbound message.
func (s *Store) PopInbound() (InboundMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.inbound) == 0 {
		return InboundMessage{}, false
	}
	m := s.inbound[0]
	s.inbound = s.inbound[1:]
	return m, true
}

// --- Device/self-info caches ---

func (s *Store) SetSelfInfo(v SelfInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selfInfo = &v
}

func (s *Store) SelfInfo() (SelfInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selfInfo == nil {
		return SelfInfo{}, false
	}
	return *s.selfInfo, true
}

func (s *Store) SetDeviceInfo(v DeviceInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceInfo = &v
}

func (s *Store) DeviceInfo() (DeviceInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deviceInfo == nil {
		return DeviceInfo{}, false
	}
	return *s.deviceInfo, true
}

func (s *Store) SetTuningParameters(v TuningParameters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuning = &v
}

func (s *Store) TuningParameters() (TuningParameters, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tuning == nil {
		return TuningParameters{}, false
	}
	return *s.tuning, true
}

func (s *Store) SetBattAndStorage(v BattAndStorage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battStore = &v
}

func (s *Store) BattAndStorage() (BattAndStorage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.battStore == nil {
		return BattAndStorage{}, false
	}
	return *s.battStore, true
}

func (s *Store) SetDeviceTimeUnixSeconds(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceTime = &v
}

func (s *Store) DeviceTimeUnixSeconds() (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deviceTime == nil {
		return 0, false
	}
	return *s.deviceTime, true
}

// --- Exports ---

// SetExport records the meshcore:// URL for a contact's export payload.
func (s *Store) SetExport(pk PublicKey, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports[pk] = url
}

// Export retrieves a previously recorded export URL.
func (s *Store) Export(pk PublicKey) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.exports[pk]
	return u, ok
}
