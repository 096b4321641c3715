package directmsg

import "testing"

type recordingBroadcaster struct {
	payloads []string
}

func (r *recordingBroadcaster) BroadcastToBrowser(payload string, ctx any) {
	r.payloads = append(r.payloads, payload)
}

func TestSendThenDestructiveReceiveReturnsExactlyOneMessage(t *testing.T) {
	b := &recordingBroadcaster{}
	ch := New(b)

	ch.Send("hello", nil)

	got := ch.PickupBrowser(true)
	if len(got) != 1 || got[0].Payload != "hello" {
		t.Fatalf("expected exactly one message with payload hello, got %+v", got)
	}
	if len(b.payloads) != 1 || b.payloads[0] != "hello" {
		t.Fatalf("expected Send to also broadcast immediately, got %v", b.payloads)
	}

	if got := ch.PickupBrowser(true); len(got) != 0 {
		t.Fatalf("expected destructive pickup to drain the queue, got %+v", got)
	}
}

func TestNonDestructivePickupLeavesMessageQueued(t *testing.T) {
	ch := New(nil)
	ch.Receive("from-browser", nil)

	first := ch.PickupAssistant(false)
	if len(first) != 1 {
		t.Fatalf("expected one message, got %+v", first)
	}

	second := ch.PickupAssistant(false)
	if len(second) != 1 || second[0].ID != first[0].ID {
		t.Fatalf("expected non-destructive pickup to leave the message queued, got %+v", second)
	}

	drained := ch.PickupAssistant(true)
	if len(drained) != 1 {
		t.Fatalf("expected destructive pickup to still return the message once, got %+v", drained)
	}
	if left := ch.PickupAssistant(false); len(left) != 0 {
		t.Fatalf("expected queue empty after destructive pickup, got %+v", left)
	}
}

func TestStatusReportsPendingCountsAndConnectivity(t *testing.T) {
	ch := New(nil)
	ch.Send("a", nil)
	ch.Send("b", nil)
	ch.Receive("c", nil)

	status := ch.Status(3)
	if status.PendingToBrowser != 2 || status.PendingToAssistant != 1 || status.BrowsersConnected != 3 {
		t.Fatalf("unexpected status: %+v", status)
	}
}
