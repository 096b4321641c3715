package controlplane

import (
	"github.com/codebridgehq/codebridge/internal/wire"
)

// BroadcastTaskEvent implements taskqueue.Broadcaster: it fans a task
// lifecycle event out to every live browser as an unsolicited frame,
// never holding the registry lock across the sends (spec.md §5, §9
// "Ad-hoc broadcast loops" redesign note).
func (b *Bridge) BroadcastTaskEvent(eventType string, payload map[string]any) {
	frame := map[string]any{"type": eventType}
	for k, v := range payload {
		frame[k] = v
	}
	for _, sess := range b.registry.BrowsersSnapshot() {
		_ = sess.Conn().WriteJSON(frame)
	}
}

// BroadcastToBrowser implements directmsg.Broadcaster: it sends an
// assistant-originated direct message to every live browser immediately,
// in addition to the canonical queue directmsg.Channel retains for pickup.
func (b *Bridge) BroadcastToBrowser(payload string, ctx any) {
	for _, sess := range b.registry.BrowsersSnapshot() {
		_ = sess.Conn().WriteJSON(map[string]any{
			"type":    wire.TypeTBMessage,
			"payload": payload,
			"context": ctx,
		})
	}
}
