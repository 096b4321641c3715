package dispatch

import (
	"encoding/base64"
	"encoding/json"
)

// screenCaptureSizeCeilingBytes is the default 10 KB of base64 ceiling
// from spec.md §4.E.3.
const screenCaptureSizeCeilingBytes = 10 * 1024

type screenCapturePayload struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType,omitempty"`
}

type screenCaptureDescriptor struct {
	Compressed     bool   `json:"_compressed"`
	OriginalSizeKB int    `json:"_originalSizeKB"`
	Message        string `json:"_message"`
	Preview        string `json:"_preview"`
}

// applyScreenCaptureLimit rewrites an oversized capture reply to the
// structured descriptor from spec.md §4.E.3. It never decodes the
// underlying image bytes (no lossy transcoding of a format it doesn't
// understand) — the preview is a short prefix of the base64 string itself,
// and the decoded size, in whole KB, is kept in metadata.
func applyScreenCaptureLimit(result json.RawMessage) json.RawMessage {
	var payload screenCapturePayload
	if err := json.Unmarshal(result, &payload); err != nil || payload.Image == "" {
		return result
	}
	if len(payload.Image) <= screenCaptureSizeCeilingBytes {
		return result
	}

	sizeKB := base64.StdEncoding.DecodedLen(len(payload.Image)) / 1024

	preview := payload.Image
	const previewLen = 64
	if len(preview) > previewLen {
		preview = preview[:previewLen]
	}

	descriptor := screenCaptureDescriptor{
		Compressed:     true,
		OriginalSizeKB: sizeKB,
		Message:        "Screen capture exceeded the inline size limit; payload was replaced with this descriptor.",
		Preview:        preview,
	}
	out, marshalErr := json.Marshal(descriptor)
	if marshalErr != nil {
		return result
	}
	return out
}
