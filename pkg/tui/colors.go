package tui

import "github.com/gdamore/tcell/v2"

// Color constants for the dashboard theme, muted pastels on terminal black
var (
	// Message text colors
	ColorUserText      = tcell.NewRGBColor(255, 176, 0) // Warm amber - user messages
	ColorAssistantText = tcell.NewRGBColor(0, 255, 135) // Mint green - assistant messages

	// UI element colors
	ColorBorder       = tcell.NewRGBColor(255, 215, 0)   // Gold - pane borders
	ColorHeaderText   = tcell.NewRGBColor(175, 175, 175) // Light gray - headers
	ColorDimText      = tcell.NewRGBColor(169, 169, 169) // Dark gray - secondary text
	ColorChannelName  = tcell.NewRGBColor(218, 112, 214) // Orchid - channel names
	ColorPlatformTag  = tcell.NewRGBColor(176, 224, 230) // Powder blue - platform tags
	ColorTypingText   = tcell.NewRGBColor(255, 192, 203) // Pink - typing indicator
	ColorSelectedBack = tcell.NewRGBColor(64, 64, 64)    // Dark gray - selection

	// Status colors
	ColorStatusReady   = tcell.NewRGBColor(144, 238, 144) // Light green - connected
	ColorStatusOffline = tcell.NewRGBColor(255, 99, 71)   // Tomato - disconnected
	ColorStatusBusy    = tcell.NewRGBColor(255, 218, 185) // Peach - loading
)

// Style presets combining colors with text attributes
var (
	StyleDefault       = tcell.StyleDefault.Background(tcell.ColorBlack)
	StyleUserText      = StyleDefault.Foreground(ColorUserText)
	StyleAssistantText = StyleDefault.Foreground(ColorAssistantText)
	StyleBorder        = StyleDefault.Foreground(ColorBorder)
	StyleHeader        = StyleDefault.Foreground(ColorHeaderText).Bold(true)
	StyleDim           = StyleDefault.Foreground(ColorDimText)
	StyleChannelName   = StyleDefault.Foreground(ColorChannelName)
	StylePlatformTag   = StyleDefault.Foreground(ColorPlatformTag)
	StyleTyping        = StyleDefault.Foreground(ColorTypingText).Italic(true)
	StyleSelected      = StyleDefault.Background(ColorSelectedBack).Bold(true)
	StyleConnected     = StyleDefault.Foreground(ColorStatusReady)
	StyleDisconnected  = StyleDefault.Foreground(ColorStatusOffline)
	StyleLoading       = StyleDefault.Foreground(ColorStatusBusy).Italic(true)
)
