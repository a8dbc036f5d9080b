package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Marenz/spacebot-dash/pkg/api"
	"github.com/Marenz/spacebot-dash/pkg/dashboard"
	"github.com/Marenz/spacebot-dash/pkg/livestate"
	"github.com/Marenz/spacebot-dash/pkg/logger"
)

const channelPaneWidth = 32

// refreshEvent wakes the event loop when the live state changed
type refreshEvent struct {
	tcell.EventTime
}

// View renders the live channel state on a tcell screen: channel list on
// the left, the selected channel's conversation on the right, connection
// status at the bottom.
type View struct {
	screen   tcell.Screen
	orch     *dashboard.Orchestrator
	selected int
	log      *logger.ComponentLogger
}

// NewView creates a dashboard view over the orchestrator's state
func NewView(orch *dashboard.Orchestrator) *View {
	return &View{
		orch: orch,
		log:  logger.WithComponent("tui"),
	}
}

// Run initializes the screen and blocks in the event loop until quit
func (v *View) Run() error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	v.screen = screen
	defer screen.Fini()

	screen.SetStyle(StyleDefault)
	screen.Clear()
	v.log.Info("Dashboard view started")

	quit := make(chan struct{})
	go v.forwardChanges(quit)

	for {
		v.draw()
		ev := screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if v.handleKey(ev) {
				close(quit)
				return nil
			}
		case *tcell.EventResize:
			screen.Sync()
		case *refreshEvent:
			// Redraw with fresh snapshots
		}
	}
}

// forwardChanges turns store notifications and a steady tick into screen
// events so the clock and activity times stay current
func (v *View) forwardChanges(quit chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-v.orch.Changes():
		case <-ticker.C:
		case <-quit:
			return
		}
		ev := &refreshEvent{}
		ev.SetEventNow()
		if err := v.screen.PostEvent(ev); err != nil {
			// Queue full; the pending redraw covers this change
			continue
		}
	}
}

// handleKey returns true when the view should quit
func (v *View) handleKey(ev *tcell.EventKey) bool {
	switch {
	case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
		return true
	case ev.Rune() == 'q':
		return true
	case ev.Key() == tcell.KeyUp || ev.Rune() == 'k':
		if v.selected > 0 {
			v.selected--
		}
	case ev.Key() == tcell.KeyDown || ev.Rune() == 'j':
		v.selected++
	}
	return false
}

func (v *View) draw() {
	v.screen.Clear()
	width, height := v.screen.Size()

	channels := v.sortedChannels()
	if v.selected >= len(channels) {
		v.selected = len(channels) - 1
	}
	if v.selected < 0 {
		v.selected = 0
	}

	v.drawChannelPane(channels, height-1)
	v.drawBorder(channelPaneWidth, height-1)
	if len(channels) > 0 {
		v.drawMessagePane(channels[v.selected], channelPaneWidth+2, width, height-1)
	} else {
		v.drawText(channelPaneWidth+2, 1, width, "waiting for channels...", StyleDim)
	}
	v.drawStatusBar(width, height-1)

	v.screen.Show()
}

// sortedChannels returns descriptors ordered by most recent activity
func (v *View) sortedChannels() []api.Channel {
	channels := v.orch.Descriptors()
	sort.Slice(channels, func(i, j int) bool {
		return channels[i].LastActivityAt.After(channels[j].LastActivityAt)
	})
	return channels
}

func (v *View) drawChannelPane(channels []api.Channel, height int) {
	v.drawText(1, 0, channelPaneWidth, "CHANNELS", StyleHeader)

	row := 1
	for i, ch := range channels {
		if row >= height {
			break
		}

		name := ch.ID
		if ch.DisplayName != nil && *ch.DisplayName != "" {
			name = *ch.DisplayName
		}

		nameStyle := StyleChannelName
		if i == v.selected {
			nameStyle = StyleSelected
		}
		marker := "  "
		if ch.IsActive {
			marker = "* "
		}
		v.drawText(1, row, channelPaneWidth, marker+name, nameStyle)
		v.drawText(3, row+1, channelPaneWidth, fmt.Sprintf("[%s] %s", ch.Platform, relativeTime(ch.LastActivityAt)), StylePlatformTag)
		row += 2
	}
}

func (v *View) drawMessagePane(ch api.Channel, left, width, height int) {
	state, ok := v.orch.Store().Channel(ch.ID)
	if !ok || state.Phase == livestate.LoadPending {
		v.drawText(left, 1, width, "loading history...", StyleLoading)
		return
	}

	// Lines render bottom-up so the newest messages stay visible
	bottom := height - 1
	if state.Typing {
		v.drawText(left, bottom-1, width, "typing...", StyleTyping)
		bottom--
	}

	row := bottom - 1
	for i := len(state.Messages) - 1; i >= 0 && row > 0; i-- {
		msg := state.Messages[i]

		style := StyleAssistantText
		label := "bot"
		if msg.Origin == livestate.OriginUser {
			style = StyleUserText
			label = "user"
			if msg.Sender != "" {
				label = msg.Sender
			}
		}

		line := fmt.Sprintf("%s %s: %s", time.UnixMilli(msg.Timestamp).Format("15:04:05"), label, msg.Text)
		v.drawText(left, row, width, line, style)
		row--
	}
}

func (v *View) drawBorder(x, height int) {
	for y := 0; y < height; y++ {
		v.screen.SetContent(x, y, tcell.RuneVLine, nil, StyleBorder)
	}
}

func (v *View) drawStatusBar(width, y int) {
	status := "disconnected"
	style := StyleDisconnected
	if v.orch.StreamConnected() {
		status = "connected"
		style = StyleConnected
	}
	v.drawText(1, y, width, fmt.Sprintf("stream: %s", status), style)
	v.drawText(width-30, y, width, "q quit  j/k select", StyleDim)
}

func (v *View) drawText(x, y, maxX int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= maxX {
			break
		}
		v.screen.SetContent(col, y, r, nil, style)
		col++
	}
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
