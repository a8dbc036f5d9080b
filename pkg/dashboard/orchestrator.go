package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/Marenz/spacebot-dash/pkg/api"
	"github.com/Marenz/spacebot-dash/pkg/events"
	"github.com/Marenz/spacebot-dash/pkg/livestate"
	"github.com/Marenz/spacebot-dash/pkg/logger"
)

// Orchestrator drives channel discovery, dispatches exactly one history
// load per channel, and wires stream events to store mutations. It holds
// no conversation data itself; all collaborators are injected and torn
// down explicitly with the session.
type Orchestrator struct {
	api             *api.Client
	stream          *events.Client
	store           *livestate.Store
	historyLimit    int
	refreshInterval time.Duration
	log             *logger.ComponentLogger

	mu          sync.Mutex
	descriptors map[string]api.Channel

	refreshCh chan struct{}
	changes   chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator around the injected collaborators
func New(apiClient *api.Client, stream *events.Client, store *livestate.Store, historyLimit int, refreshInterval time.Duration) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		api:             apiClient,
		stream:          stream,
		store:           store,
		historyLimit:    historyLimit,
		refreshInterval: refreshInterval,
		log:             logger.WithComponent("orchestrator"),
		descriptors:     make(map[string]api.Channel),
		refreshCh:       make(chan struct{}, 1),
		changes:         make(chan struct{}, 1),
		ctx:             ctx,
		cancel:          cancel,
	}

	store.OnChange = o.notifyChanged
	return o
}

// Changes delivers a coalesced signal whenever the live state or the
// channel descriptors change. Consumers re-read snapshots on each signal.
func (o *Orchestrator) Changes() <-chan struct{} {
	return o.changes
}

// Descriptors returns a copy of the latest channel list snapshot
func (o *Orchestrator) Descriptors() []api.Channel {
	o.mu.Lock()
	defer o.mu.Unlock()
	result := make([]api.Channel, 0, len(o.descriptors))
	for _, ch := range o.descriptors {
		result = append(result, ch)
	}
	return result
}

// Store exposes the live-state store for read access
func (o *Orchestrator) Store() *livestate.Store {
	return o.store
}

// StreamConnected reports the stream client's connection state
func (o *Orchestrator) StreamConnected() bool {
	return o.stream.Connected()
}

// Start registers stream handlers, opens the event connection, and begins
// periodic channel discovery
func (o *Orchestrator) Start() {
	o.stream.SetHandlers(o.handlerTable())
	o.stream.Connect()

	o.wg.Add(1)
	go o.discoveryLoop()
}

// Close tears the session down: the stream connection and any pending
// reconnect stop synchronously, discovery stops, and in-flight history
// loads are left to resolve without effect.
func (o *Orchestrator) Close() {
	o.cancel()
	o.stream.Close()
	o.wg.Wait()
}

func (o *Orchestrator) discoveryLoop() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.refreshInterval)
	defer ticker.Stop()

	for {
		o.refresh()
		select {
		case <-ticker.C:
		case <-o.refreshCh:
		case <-o.ctx.Done():
			return
		}
	}
}

// refresh fetches the channel list, records descriptors, and dispatches a
// history load for every channel seen for the first time
func (o *Orchestrator) refresh() {
	channels, err := o.api.Channels(o.ctx)
	if err != nil {
		if o.ctx.Err() == nil {
			o.log.Warn("Channel list fetch failed", "error", err)
		}
		return
	}

	o.mu.Lock()
	for _, ch := range channels {
		o.descriptors[ch.ID] = ch
	}
	o.mu.Unlock()

	for _, ch := range channels {
		o.store.Observe(ch.ID)
		o.dispatchLoad(ch.ID)
	}
	o.notifyChanged()
}

// dispatchLoad starts the channel's one history load if nobody has yet
func (o *Orchestrator) dispatchLoad(channelID string) {
	if !o.store.BeginLoad(channelID) {
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.loadHistory(channelID)
	}()
}

// loadHistory fetches the channel's snapshot and resolves the merge. A
// failed fetch still resolves with an empty snapshot: the channel is
// marked loaded rather than retried and degrades to live-only data.
func (o *Orchestrator) loadHistory(channelID string) {
	msgs, err := o.api.Messages(o.ctx, channelID, o.historyLimit)
	if err != nil {
		if o.ctx.Err() == nil {
			o.log.Warn("History fetch failed, channel degrades to live-only",
				"channel_id", channelID, "error", err)
		}
		o.store.MergeHistory(channelID, nil)
		return
	}

	o.log.Debug("History loaded", "channel_id", channelID, "messages", len(msgs))
	o.store.MergeHistory(channelID, livestate.FromPersistedAll(msgs))
}

// handlerTable wires stream events to store mutations
func (o *Orchestrator) handlerTable() events.HandlerTable {
	return events.HandlerTable{
		events.TypeInboundMessage:  o.onInbound,
		events.TypeOutboundMessage: o.onOutbound,
		events.TypeTypingState:     o.onTyping,
		events.TypeProcessEvent:    o.onProcessEvent,
	}
}

func (o *Orchestrator) onInbound(p events.Payload) {
	msg, ok := p.Decoded.(*events.InboundMessage)
	if !ok {
		o.log.Warn("Ignoring undecodable inbound_message", "raw", p.Raw)
		return
	}

	o.store.Append(msg.ChannelID, livestate.NewLiveMessage(livestate.OriginUser, msg.SenderID, msg.Text))
	o.nudgeRefresh()
}

func (o *Orchestrator) onOutbound(p events.Payload) {
	msg, ok := p.Decoded.(*events.OutboundMessage)
	if !ok {
		o.log.Warn("Ignoring undecodable outbound_message", "raw", p.Raw)
		return
	}

	// Appending an assistant message also clears the typing indicator
	o.store.Append(msg.ChannelID, livestate.NewLiveMessage(livestate.OriginAssistant, "", msg.Text))
	o.nudgeRefresh()
}

func (o *Orchestrator) onTyping(p events.Payload) {
	state, ok := p.Decoded.(*events.TypingState)
	if !ok {
		o.log.Warn("Ignoring undecodable typing_state", "raw", p.Raw)
		return
	}

	o.store.SetTyping(state.ChannelID, state.IsTyping)
}

func (o *Orchestrator) onProcessEvent(p events.Payload) {
	// Forward-compatible envelope; nothing here interprets the inner types
	if ev, ok := p.Decoded.(*events.ProcessEvent); ok {
		o.log.Debug("Process event", "agent_id", ev.AgentID)
	}
}

// nudgeRefresh requests an immediate channel-list refresh so last-activity
// metadata is stale for at most one round trip. Coalesced.
func (o *Orchestrator) nudgeRefresh() {
	select {
	case o.refreshCh <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) notifyChanged() {
	select {
	case o.changes <- struct{}{}:
	default:
	}
}
