package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/spf13/cobra"

	"github.com/Marenz/spacebot-dash/pkg/config"
	"github.com/Marenz/spacebot-dash/pkg/events"
)

var streamDebugCmd = &cobra.Command{
	Use:   "stream-debug",
	Short: "Tail the raw event stream",
	Long:  `Connects to the daemon's event stream and prints every frame with its JSON payload pretty-printed and syntax-highlighted. Useful for inspecting process_event types the dashboard does not interpret.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.Get()

		client := events.NewClient(settings.Server.URL+"/api/events", settings.Stream.ReconnectDelay)
		client.OnConnectionChange = func(connected bool) {
			if connected {
				fmt.Fprintln(os.Stderr, "-- connected --")
			} else {
				fmt.Fprintln(os.Stderr, "-- disconnected --")
			}
		}

		dump := func(name string) events.Handler {
			return func(p events.Payload) {
				fmt.Printf("event: %s\n", name)
				if p.IsRaw() {
					fmt.Printf("(malformed payload) %s\n\n", p.Raw)
					return
				}
				fmt.Printf("%s\n", highlightJSON(p.Raw))
			}
		}

		client.SetHandlers(events.HandlerTable{
			events.TypeInboundMessage:  dump(events.TypeInboundMessage),
			events.TypeOutboundMessage: dump(events.TypeOutboundMessage),
			events.TypeTypingState:     dump(events.TypeTypingState),
			events.TypeProcessEvent:    dump(events.TypeProcessEvent),
		})
		client.Connect()
		defer client.Close()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return nil
	},
}

// highlightJSON pretty-prints and syntax-highlights a JSON payload for
// terminal output, falling back to the raw text when anything fails
func highlightJSON(raw string) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(raw), "", "  "); err != nil {
		return raw
	}

	lexer := lexers.Get("json")
	if lexer == nil {
		return pretty.String()
	}

	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, pretty.String())
	if err != nil {
		return pretty.String()
	}

	var out bytes.Buffer
	if err := formatter.Format(&out, style, iterator); err != nil {
		return pretty.String()
	}
	return out.String()
}

func init() {
	rootCmd.AddCommand(streamDebugCmd)
}
