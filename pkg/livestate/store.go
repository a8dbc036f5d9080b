package livestate

import (
	"sync"

	"github.com/Marenz/spacebot-dash/pkg/logger"
)

// DefaultMaxMessages caps every channel's in-memory sequence
const DefaultMaxMessages = 50

// LoadPhase tracks a channel's history snapshot lifecycle. Transitions are
// monotonic: NotStarted -> Pending -> Done, never back.
type LoadPhase int

const (
	LoadNotStarted LoadPhase = iota
	LoadPending
	LoadDone
)

// String returns the string representation of the load phase
func (p LoadPhase) String() string {
	switch p {
	case LoadNotStarted:
		return "not-started"
	case LoadPending:
		return "loading"
	case LoadDone:
		return "loaded"
	default:
		return "unknown"
	}
}

// ChannelState is a copy-out snapshot of one channel's live view
type ChannelState struct {
	Messages []ViewMessage
	Typing   bool
	Phase    LoadPhase
}

type channelState struct {
	messages []ViewMessage
	typing   bool
	phase    LoadPhase
}

// Store owns the per-channel live state and reconciles the one-time history
// snapshot with the continuous event stream. One mutex is the single
// serialization point: merge-on-load reads the live buffer under the same
// lock at completion time, which is what makes the cutoff filter correct
// against events that arrived while the fetch was in flight.
type Store struct {
	mu          sync.Mutex
	channels    map[string]*channelState
	maxMessages int
	log         *logger.ComponentLogger

	// Optional; invoked after every mutation, outside the lock. Set before
	// the store is shared and not changed afterwards.
	OnChange func()
}

// NewStore creates a store with the default per-channel cap
func NewStore() *Store {
	return NewStoreWithLimit(DefaultMaxMessages)
}

// NewStoreWithLimit creates a store with a custom per-channel cap
func NewStoreWithLimit(maxMessages int) *Store {
	return &Store{
		channels:    make(map[string]*channelState),
		maxMessages: maxMessages,
		log:         logger.WithComponent("livestate"),
	}
}

// Observe ensures a live state exists for the channel. States are created
// lazily the first time a channel is seen, whether from the channel
// snapshot or a live event.
func (s *Store) Observe(channelID string) {
	s.mu.Lock()
	s.ensureLocked(channelID)
	s.mu.Unlock()
	s.changed()
}

// Append adds one live message to the channel's sequence and evicts from
// the front past the cap. It never waits for the history load; an appended
// message lands regardless of load phase. An assistant message clears the
// typing indicator as a side effect (a reply means the bot finished typing).
func (s *Store) Append(channelID string, msg ViewMessage) {
	s.mu.Lock()
	st := s.ensureLocked(channelID)
	st.messages = append(st.messages, msg)
	st.messages = truncateFront(st.messages, s.maxMessages)
	if msg.Origin == OriginAssistant {
		st.typing = false
	}
	s.mu.Unlock()
	s.changed()
}

// SetTyping sets the channel's typing indicator unconditionally. There is
// no timeout-based auto-clear: only an assistant message resets it, so a
// stream that never delivers one leaves the indicator stuck true.
func (s *Store) SetTyping(channelID string, typing bool) {
	s.mu.Lock()
	st := s.ensureLocked(channelID)
	st.typing = typing
	s.mu.Unlock()
	s.changed()
}

// BeginLoad claims the channel's one history load. Returns true exactly
// once per channel lifetime; callers must only dispatch a fetch when it
// does. Creates the state if the load races ahead of discovery.
func (s *Store) BeginLoad(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ensureLocked(channelID)
	if st.phase != LoadNotStarted {
		return false
	}
	st.phase = LoadPending
	return true
}

// MergeHistory resolves the channel's history load. The snapshot becomes
// the prefix; live messages collected while the fetch was in flight are
// kept only when strictly newer than the snapshot's last timestamp, then
// the result is truncated to the cap. The filter assumes log time and
// arrival time share a comparable clock; when they disagree a message can
// be dropped or duplicated (no shared identity exists between server ids
// and synthesized live ids to do better). A merge for a channel that was
// torn down in the meantime is discarded without effect.
func (s *Store) MergeHistory(channelID string, history []ViewMessage) {
	s.mu.Lock()
	st, ok := s.channels[channelID]
	if !ok {
		s.mu.Unlock()
		s.log.Debug("Discarding history for dropped channel", "channel_id", channelID)
		return
	}

	cutoff := int64(0)
	if len(history) > 0 {
		cutoff = history[len(history)-1].Timestamp
	}

	merged := make([]ViewMessage, 0, len(history)+len(st.messages))
	merged = append(merged, history...)
	for _, msg := range st.messages {
		if msg.Timestamp > cutoff {
			merged = append(merged, msg)
		}
	}

	st.messages = truncateFront(merged, s.maxMessages)
	st.phase = LoadDone
	s.mu.Unlock()
	s.changed()
}

// Channel returns a copy of the channel's state
func (s *Store) Channel(channelID string) (ChannelState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.channels[channelID]
	if !ok {
		return ChannelState{}, false
	}
	return st.snapshot(), true
}

// Channels returns copies of every channel's state keyed by channel id
func (s *Store) Channels() map[string]ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]ChannelState, len(s.channels))
	for id, st := range s.channels {
		result[id] = st.snapshot()
	}
	return result
}

// Phase returns the channel's load phase, LoadNotStarted when unknown
func (s *Store) Phase(channelID string) LoadPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.channels[channelID]; ok {
		return st.phase
	}
	return LoadNotStarted
}

// Drop tears down a channel's live state. A history load still in flight
// for the channel resolves without effect afterwards.
func (s *Store) Drop(channelID string) {
	s.mu.Lock()
	delete(s.channels, channelID)
	s.mu.Unlock()
	s.changed()
}

func (s *Store) ensureLocked(channelID string) *channelState {
	st, ok := s.channels[channelID]
	if !ok {
		st = &channelState{}
		s.channels[channelID] = st
	}
	return st
}

func (s *Store) changed() {
	if s.OnChange != nil {
		s.OnChange()
	}
}

func (st *channelState) snapshot() ChannelState {
	msgs := make([]ViewMessage, len(st.messages))
	copy(msgs, st.messages)
	return ChannelState{
		Messages: msgs,
		Typing:   st.typing,
		Phase:    st.phase,
	}
}

// truncateFront keeps the newest limit elements, evicting from the front
func truncateFront(msgs []ViewMessage, limit int) []ViewMessage {
	if len(msgs) <= limit {
		return msgs
	}
	return msgs[len(msgs)-limit:]
}
