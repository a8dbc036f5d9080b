package livestate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewMsg(id string, origin string, ts int64) ViewMessage {
	return ViewMessage{
		ID:        id,
		Origin:    origin,
		Text:      "msg-" + id,
		Timestamp: ts,
	}
}

// requireInvariants checks the standing invariants of a channel sequence:
// bounded, ascending by timestamp, unique identities.
func requireInvariants(t *testing.T, msgs []ViewMessage, limit int) {
	t.Helper()
	require.LessOrEqual(t, len(msgs), limit)
	seen := make(map[string]bool)
	for i, msg := range msgs {
		require.False(t, seen[msg.ID], "duplicate identity %s", msg.ID)
		seen[msg.ID] = true
		if i > 0 {
			require.GreaterOrEqual(t, msg.Timestamp, msgs[i-1].Timestamp)
		}
	}
}

func TestAppendCreatesChannelLazily(t *testing.T) {
	store := NewStore()

	_, ok := store.Channel("c1")
	require.False(t, ok)

	store.Append("c1", viewMsg("m1", OriginUser, 100))

	state, ok := store.Channel("c1")
	require.True(t, ok)
	assert.Len(t, state.Messages, 1)
	assert.Equal(t, LoadNotStarted, state.Phase)
}

func TestAppendEnforcesCap(t *testing.T) {
	store := NewStore()

	for i := 0; i < DefaultMaxMessages+25; i++ {
		store.Append("c1", viewMsg(fmt.Sprintf("m%d", i), OriginUser, int64(i)))
	}

	state, _ := store.Channel("c1")
	requireInvariants(t, state.Messages, DefaultMaxMessages)

	// Eviction is FIFO: the oldest 25 are gone, order of the rest intact
	assert.Equal(t, "m25", state.Messages[0].ID)
	assert.Equal(t, fmt.Sprintf("m%d", DefaultMaxMessages+24), state.Messages[len(state.Messages)-1].ID)
}

func TestAppendPreservesDeliveryOrder(t *testing.T) {
	store := NewStore()

	for i := 0; i < 10; i++ {
		store.Append("c1", viewMsg(fmt.Sprintf("m%d", i), OriginUser, int64(100+i)))
	}

	state, _ := store.Channel("c1")
	for i, msg := range state.Messages {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.ID)
	}
}

func TestBeginLoadClaimsExactlyOnce(t *testing.T) {
	store := NewStore()

	require.True(t, store.BeginLoad("c1"))
	assert.False(t, store.BeginLoad("c1"))
	assert.Equal(t, LoadPending, store.Phase("c1"))

	store.MergeHistory("c1", nil)
	assert.Equal(t, LoadDone, store.Phase("c1"))

	// Phase never reverts, not even after another claim attempt
	assert.False(t, store.BeginLoad("c1"))
	assert.Equal(t, LoadDone, store.Phase("c1"))
}

func TestMergeHistoryEmptySnapshotKeepsLiveMessages(t *testing.T) {
	// Scenario: channel with no prior history receives a live message
	// before the (empty) history fetch resolves.
	store := NewStore()

	require.True(t, store.BeginLoad("c1"))
	store.Append("c1", ViewMessage{ID: "live1", Origin: OriginUser, Sender: "u1", Text: "hi", Timestamp: 500})
	store.MergeHistory("c1", nil)

	state, _ := store.Channel("c1")
	require.Len(t, state.Messages, 1)
	assert.Equal(t, OriginUser, state.Messages[0].Origin)
	assert.Equal(t, "u1", state.Messages[0].Sender)
	assert.Equal(t, "hi", state.Messages[0].Text)
	assert.Equal(t, LoadDone, state.Phase)
}

func TestMergeHistoryCutoffDiscardsOlderLiveMessages(t *testing.T) {
	// Scenario: history resolves with timestamps [100,200,300]; a live
	// event stamped 250 arrived while the fetch was in flight. The cutoff
	// filter discards it (250 is not strictly newer than 300) — the
	// documented two-clock edge case, not a bug here.
	store := NewStore()

	require.True(t, store.BeginLoad("c2"))
	store.Append("c2", viewMsg("live1", OriginUser, 250))

	history := []ViewMessage{
		viewMsg("h1", OriginUser, 100),
		viewMsg("h2", OriginAssistant, 200),
		viewMsg("h3", OriginUser, 300),
	}
	store.MergeHistory("c2", history)

	state, _ := store.Channel("c2")
	require.Len(t, state.Messages, 3)
	assert.Equal(t, []string{"h1", "h2", "h3"}, []string{state.Messages[0].ID, state.Messages[1].ID, state.Messages[2].ID})
	requireInvariants(t, state.Messages, DefaultMaxMessages)
}

func TestMergeHistoryKeepsStrictlyNewerLiveMessages(t *testing.T) {
	store := NewStore()

	require.True(t, store.BeginLoad("c1"))
	store.Append("c1", viewMsg("live1", OriginUser, 350))
	store.Append("c1", viewMsg("live2", OriginAssistant, 400))

	history := []ViewMessage{
		viewMsg("h1", OriginUser, 100),
		viewMsg("h2", OriginUser, 300),
	}
	store.MergeHistory("c1", history)

	state, _ := store.Channel("c1")
	require.Len(t, state.Messages, 4)
	assert.Equal(t, "h1", state.Messages[0].ID)
	assert.Equal(t, "live2", state.Messages[3].ID)
	requireInvariants(t, state.Messages, DefaultMaxMessages)
}

func TestMergeHistoryIsIdempotent(t *testing.T) {
	store := NewStore()

	require.True(t, store.BeginLoad("c1"))
	store.Append("c1", viewMsg("live1", OriginUser, 350))

	history := []ViewMessage{viewMsg("h1", OriginUser, 300)}
	store.MergeHistory("c1", history)
	first, _ := store.Channel("c1")

	store.MergeHistory("c1", history)
	second, _ := store.Channel("c1")

	assert.Equal(t, first.Messages, second.Messages)
}

func TestMergeHistoryTruncatesToCap(t *testing.T) {
	store := NewStoreWithLimit(5)

	require.True(t, store.BeginLoad("c1"))
	for i := 0; i < 4; i++ {
		store.Append("c1", viewMsg(fmt.Sprintf("live%d", i), OriginUser, int64(1000+i)))
	}

	history := make([]ViewMessage, 4)
	for i := range history {
		history[i] = viewMsg(fmt.Sprintf("h%d", i), OriginUser, int64(100+i))
	}
	store.MergeHistory("c1", history)

	state, _ := store.Channel("c1")
	require.Len(t, state.Messages, 5)
	// History is the prefix; the cap evicts its oldest entries first
	assert.Equal(t, "h3", state.Messages[0].ID)
	assert.Equal(t, "live3", state.Messages[4].ID)
}

func TestMergeHistoryForDroppedChannelIsDiscarded(t *testing.T) {
	store := NewStore()

	require.True(t, store.BeginLoad("c1"))
	store.Drop("c1")

	// The in-flight load resolving late must not recreate the channel
	store.MergeHistory("c1", []ViewMessage{viewMsg("h1", OriginUser, 100)})

	_, ok := store.Channel("c1")
	assert.False(t, ok)
}

func TestAppendDuringAndAfterLoad(t *testing.T) {
	store := NewStore()

	require.True(t, store.BeginLoad("c1"))
	store.Append("c1", viewMsg("during", OriginUser, 400))
	store.MergeHistory("c1", []ViewMessage{viewMsg("h1", OriginUser, 100)})
	store.Append("c1", viewMsg("after", OriginUser, 500))

	state, _ := store.Channel("c1")
	require.Len(t, state.Messages, 3)
	assert.Equal(t, "after", state.Messages[2].ID)
}

func TestTypingIndicator(t *testing.T) {
	store := NewStore()

	store.SetTyping("c1", true)
	state, _ := store.Channel("c1")
	assert.True(t, state.Typing)

	// Unrelated events leave it alone
	store.Append("c1", viewMsg("u1", OriginUser, 100))
	store.SetTyping("c2", false)
	state, _ = store.Channel("c1")
	assert.True(t, state.Typing)

	// An assistant message clears it
	store.Append("c1", viewMsg("a1", OriginAssistant, 200))
	state, _ = store.Channel("c1")
	assert.False(t, state.Typing)
}

func TestTypingHasNoAutoClear(t *testing.T) {
	store := NewStore()

	store.SetTyping("c1", true)
	for i := 0; i < 10; i++ {
		store.Append("c1", viewMsg(fmt.Sprintf("u%d", i), OriginUser, int64(i)))
	}

	state, _ := store.Channel("c1")
	assert.True(t, state.Typing, "only an assistant message clears typing")
}

func TestChannelSnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.Append("c1", viewMsg("m1", OriginUser, 100))

	state, _ := store.Channel("c1")
	state.Messages[0].Text = "mutated"

	fresh, _ := store.Channel("c1")
	assert.Equal(t, "msg-m1", fresh.Messages[0].Text)
}

func TestChannelsReturnsAllStates(t *testing.T) {
	store := NewStore()
	store.Append("c1", viewMsg("m1", OriginUser, 100))
	store.SetTyping("c2", true)
	store.Observe("c3")

	all := store.Channels()
	require.Len(t, all, 3)
	assert.Len(t, all["c1"].Messages, 1)
	assert.True(t, all["c2"].Typing)
	assert.Equal(t, LoadNotStarted, all["c3"].Phase)
}

func TestOnChangeFires(t *testing.T) {
	store := NewStore()
	changes := 0
	store.OnChange = func() { changes++ }

	store.Append("c1", viewMsg("m1", OriginUser, 100))
	store.SetTyping("c1", true)
	store.MergeHistory("c1", nil)
	store.Drop("c1")

	assert.Equal(t, 4, changes)
}
