package dispatch

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

func TestApplyScreenCaptureLimitPassesThroughSmallPayload(t *testing.T) {
	small, _ := json.Marshal(screenCapturePayload{Image: "c21hbGw=", MimeType: "image/png"})
	got := applyScreenCaptureLimit(small)
	if string(got) != string(small) {
		t.Fatalf("expected small payload unchanged, got %s", got)
	}
}

func TestApplyScreenCaptureLimitRewritesOversizedPayload(t *testing.T) {
	big := strings.Repeat("A", screenCaptureSizeCeilingBytes+1000)
	raw, _ := json.Marshal(screenCapturePayload{Image: big})

	out := applyScreenCaptureLimit(raw)

	var descriptor screenCaptureDescriptor
	if err := json.Unmarshal(out, &descriptor); err != nil {
		t.Fatalf("expected a decodable descriptor, got error %v (body %s)", err, out)
	}
	if !descriptor.Compressed {
		t.Fatalf("expected _compressed=true")
	}
	wantSizeKB := base64.StdEncoding.DecodedLen(len(big)) / 1024
	if descriptor.OriginalSizeKB != wantSizeKB {
		t.Fatalf("expected original size %d KB, got %d", wantSizeKB, descriptor.OriginalSizeKB)
	}
	if len(descriptor.Preview) != 64 {
		t.Fatalf("expected a 64-byte preview prefix, got %d bytes", len(descriptor.Preview))
	}
	if !strings.HasPrefix(big, descriptor.Preview) {
		t.Fatalf("expected preview to be a literal prefix of the original base64 string, not a re-encoding")
	}
}

func TestApplyScreenCaptureLimitLeavesNonImagePayloadUntouched(t *testing.T) {
	other, _ := json.Marshal(map[string]any{"id": "abc", "name": "X"})
	got := applyScreenCaptureLimit(other)
	if string(got) != string(other) {
		t.Fatalf("expected non-screen-capture payload to pass through unchanged")
	}
}
