// Package directmsg is the direct message channel (spec.md §2 component G,
// §3 "Direct message", §4.G): two buffered queues with pickup semantics,
// one assistant->browser, one browser->assistant.
package directmsg

import (
	"sync"
	"time"

	"go.mau.fi/util/jsontime"

	"github.com/codebridgehq/codebridge/internal/ids"
)

// Direction identifies which queue a Message belongs to.
type Direction string

const (
	DirectionToBrowser   Direction = "to_browser"
	DirectionToAssistant Direction = "to_assistant"
)

// Message is one direct message (spec.md §3). CreatedAt is a
// whole-second Unix wire timestamp (jsontime.Unix) rather than a plain
// time.Time, since Message is serialized directly into cc_get responses.
type Message struct {
	ID        string
	Direction Direction
	Payload   string
	Context   any
	CreatedAt jsontime.Unix `json:"created_at"`
}

// Broadcaster fans an unsolicited frame out to every live browser, used by
// Send to deliver the message immediately in addition to queuing it for
// later pickup.
type Broadcaster interface {
	BroadcastToBrowser(payload string, ctx any)
}

// NopBroadcaster discards broadcasts; useful in tests.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastToBrowser(string, any) {}

// Channel owns both queues.
type Channel struct {
	mu sync.Mutex

	toBrowser   []Message
	toAssistant []Message

	broadcaster Broadcaster
	now         func() time.Time
}

func New(broadcaster Broadcaster) *Channel {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &Channel{broadcaster: broadcaster, now: time.Now}
}

// Send is the assistant->browser `send`: it enqueues the message onto the
// canonical queue for late pickup and simultaneously broadcasts it as an
// unsolicited frame to every live browser (spec.md §4.G).
func (c *Channel) Send(payload string, ctx any) Message {
	msg := Message{ID: ids.NewMessageID(), Direction: DirectionToBrowser, Payload: payload, Context: ctx, CreatedAt: jsontime.U(c.now())}
	c.mu.Lock()
	c.toBrowser = append(c.toBrowser, msg)
	c.mu.Unlock()
	c.broadcaster.BroadcastToBrowser(payload, ctx)
	return msg
}

// Receive is the browser->assistant `receive`: it enqueues the message for
// the assistant to pull via a tool call.
func (c *Channel) Receive(payload string, ctx any) Message {
	msg := Message{ID: ids.NewMessageID(), Direction: DirectionToAssistant, Payload: payload, Context: ctx, CreatedAt: jsontime.U(c.now())}
	c.mu.Lock()
	c.toAssistant = append(c.toAssistant, msg)
	c.mu.Unlock()
	return msg
}

// PickupAssistant returns the assistant-bound queue. When destructive is
// true the queue is drained (spec.md §8 round-trip law: "sending M then
// calling receive returns exactly M followed by an empty queue"); when
// false the queue is left intact for a non-destructive read.
func (c *Channel) PickupAssistant(destructive bool) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]Message(nil), c.toAssistant...)
	if destructive {
		c.toAssistant = nil
	}
	return out
}

// PickupBrowser returns the browser-bound queue with the same destructive
// semantics as PickupAssistant.
func (c *Channel) PickupBrowser(destructive bool) []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]Message(nil), c.toBrowser...)
	if destructive {
		c.toBrowser = nil
	}
	return out
}

// Status is the `status` accessor's payload shape (spec.md §4.G): pending
// counts plus a browser-connectivity summary supplied by the caller, which
// owns the peer registry.
type Status struct {
	PendingToBrowser   int
	PendingToAssistant int
	BrowsersConnected  int
}

func (c *Channel) Status(browsersConnected int) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		PendingToBrowser:   len(c.toBrowser),
		PendingToAssistant: len(c.toAssistant),
		BrowsersConnected:  browsersConnected,
	}
}
