package events_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Marenz/spacebot-dash/pkg/events"
)

// fakeStream is an SSE endpoint with scriptable frames and connection drops
type fakeStream struct {
	server    *httptest.Server
	conns     atomic.Int32
	frames    chan string
	dropConns chan struct{}
}

func newFakeStream() *fakeStream {
	fs := &fakeStream{
		frames:    make(chan string, 16),
		dropConns: make(chan struct{}),
	}

	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.conns.Add(1)
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case frame := <-fs.frames:
				fmt.Fprint(w, frame)
				flusher.Flush()
			case <-fs.dropConns:
				return
			case <-r.Context().Done():
				return
			}
		}
	}))

	return fs
}

func (fs *fakeStream) send(event, data string) {
	fs.frames <- fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

// drop ends the active connection server-side
func (fs *fakeStream) drop() {
	fs.dropConns <- struct{}{}
}

func (fs *fakeStream) close() {
	fs.server.Close()
}

var _ = Describe("Stream Client", func() {
	var (
		stream *fakeStream
		client *events.Client
	)

	BeforeEach(func() {
		stream = newFakeStream()
		client = events.NewClient(stream.server.URL, 100*time.Millisecond)
	})

	AfterEach(func() {
		client.Close()
		stream.close()
	})

	Describe("Dispatch", func() {
		It("delivers typed payloads to the registered handler", func() {
			received := make(chan events.Payload, 1)
			client.SetHandlers(events.HandlerTable{
				events.TypeInboundMessage: func(p events.Payload) { received <- p },
			})
			client.Connect()

			Eventually(client.Connected).Should(BeTrue())
			stream.send("inbound_message", `{"agent_id":"a1","channel_id":"c1","sender_id":"u1","text":"hi"}`)

			var payload events.Payload
			Eventually(received).Should(Receive(&payload))
			Expect(payload.IsRaw()).To(BeFalse())

			msg, ok := payload.Decoded.(*events.InboundMessage)
			Expect(ok).To(BeTrue())
			Expect(msg.ChannelID).To(Equal("c1"))
			Expect(msg.SenderID).To(Equal("u1"))
			Expect(msg.Text).To(Equal("hi"))
		})

		It("delivers the raw payload when structured parsing fails", func() {
			received := make(chan events.Payload, 1)
			client.SetHandlers(events.HandlerTable{
				events.TypeTypingState: func(p events.Payload) { received <- p },
			})
			client.Connect()

			Eventually(client.Connected).Should(BeTrue())
			stream.send("typing_state", `{broken json!`)

			var payload events.Payload
			Eventually(received).Should(Receive(&payload))
			Expect(payload.IsRaw()).To(BeTrue())
			Expect(payload.Raw).To(Equal(`{broken json!`))
		})

		It("decodes the process_event envelope without interpreting the inner type", func() {
			received := make(chan events.Payload, 1)
			client.SetHandlers(events.HandlerTable{
				events.TypeProcessEvent: func(p events.Payload) { received <- p },
			})
			client.Connect()

			Eventually(client.Connected).Should(BeTrue())
			stream.send("process_event", `{"agent_id":"a1","event":{"type":"memory_compaction","detail":42}}`)

			var payload events.Payload
			Eventually(received).Should(Receive(&payload))

			ev, ok := payload.Decoded.(*events.ProcessEvent)
			Expect(ok).To(BeTrue())
			Expect(ev.AgentID).To(Equal("a1"))
			Expect(string(ev.Event)).To(ContainSubstring("memory_compaction"))
		})

		It("preserves delivery order for a channel", func() {
			received := make(chan string, 8)
			client.SetHandlers(events.HandlerTable{
				events.TypeInboundMessage: func(p events.Payload) {
					received <- p.Decoded.(*events.InboundMessage).Text
				},
			})
			client.Connect()
			Eventually(client.Connected).Should(BeTrue())

			for i := 0; i < 5; i++ {
				stream.send("inbound_message", fmt.Sprintf(`{"channel_id":"c1","text":"msg-%d"}`, i))
			}

			for i := 0; i < 5; i++ {
				Eventually(received).Should(Receive(Equal(fmt.Sprintf("msg-%d", i))))
			}
		})
	})

	Describe("Handler table swap", func() {
		It("takes effect without reconnecting", func() {
			first := make(chan events.Payload, 1)
			second := make(chan events.Payload, 1)

			client.SetHandlers(events.HandlerTable{
				events.TypeInboundMessage: func(p events.Payload) { first <- p },
			})
			client.Connect()
			Eventually(client.Connected).Should(BeTrue())

			stream.send("inbound_message", `{"channel_id":"c1","text":"one"}`)
			Eventually(first).Should(Receive())

			client.SetHandlers(events.HandlerTable{
				events.TypeInboundMessage: func(p events.Payload) { second <- p },
			})

			stream.send("inbound_message", `{"channel_id":"c1","text":"two"}`)
			Eventually(second).Should(Receive())
			Expect(first).NotTo(Receive())
			Expect(stream.conns.Load()).To(Equal(int32(1)))
		})
	})

	Describe("Reconnect", func() {
		It("reconnects after a server-initiated close within the delay window", func() {
			received := make(chan events.Payload, 2)
			client.SetHandlers(events.HandlerTable{
				events.TypeInboundMessage: func(p events.Payload) { received <- p },
			})
			client.Connect()
			Eventually(client.Connected).Should(BeTrue())
			Expect(stream.conns.Load()).To(Equal(int32(1)))

			stream.drop()
			Eventually(client.Connected).Should(BeFalse())

			// One reconnect attempt after the fixed delay
			Eventually(func() int32 { return stream.conns.Load() }, time.Second).Should(Equal(int32(2)))
			Eventually(client.Connected).Should(BeTrue())

			// Registration survives the reconnect
			stream.send("inbound_message", `{"channel_id":"c1","text":"back"}`)
			Eventually(received).Should(Receive())
		})
	})

	Describe("Close", func() {
		It("stops the connection and never dispatches afterwards", func() {
			received := make(chan events.Payload, 1)
			client.SetHandlers(events.HandlerTable{
				events.TypeInboundMessage: func(p events.Payload) { received <- p },
			})
			client.Connect()
			Eventually(client.Connected).Should(BeTrue())

			client.Close()
			Eventually(client.Connected).Should(BeFalse())
			Consistently(received, 300*time.Millisecond).ShouldNot(Receive())
		})

		It("cancels a pending reconnect", func() {
			client.SetHandlers(events.HandlerTable{})
			client.Connect()
			Eventually(client.Connected).Should(BeTrue())

			stream.drop()
			Eventually(client.Connected).Should(BeFalse())

			// Close lands inside the reconnect delay
			client.Close()
			Consistently(func() int32 { return stream.conns.Load() }, 400*time.Millisecond).Should(Equal(int32(1)))
		})

		It("is safe to call before Connect and twice", func() {
			fresh := events.NewClient(stream.server.URL, 100*time.Millisecond)
			fresh.Close()
			fresh.Close()
			fresh.Connect() // No-op after Close
			Consistently(fresh.Connected, 200*time.Millisecond).Should(BeFalse())
		})
	})
})
