package rpcerrors

import "testing"

func TestErrorCodesMatchSpec(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		code int
	}{
		{"parse", ParseError("bad json"), CodeParseError},
		{"unknown method", UnknownMethod("foo"), CodeUnknownMethod},
		{"invalid params", InvalidParams("bar"), CodeInvalidParams},
		{"routing", Routing("no browser"), CodeApplicationErr},
		{"timeout", Timeout("Operation get_tree", 15000), CodeApplicationErr},
	}
	for _, c := range cases {
		if c.err.Code != c.code {
			t.Errorf("%s: expected code %d, got %d", c.name, c.code, c.err.Code)
		}
	}
}

func TestTimeoutMessageFormat(t *testing.T) {
	err := Timeout("Extension capture_screen", 15000)
	want := "Extension capture_screen timed out after 15000ms"
	if err.Message != want {
		t.Fatalf("got %q, want %q", err.Message, want)
	}
}

func TestStructuredFailureShape(t *testing.T) {
	f := NewStructuredFailure("gmail_not_available", "set BRIDGE_GMAIL_TOKEN")
	if f.Success {
		t.Fatalf("expected Success=false")
	}
	if f.Error != "gmail_not_available" || f.Message != "set BRIDGE_GMAIL_TOKEN" {
		t.Fatalf("unexpected structured failure: %+v", f)
	}
}
