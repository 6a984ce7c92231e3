package envelope

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFactoryDefaults(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (*Envelope, error)
		want    Kind
		wantC   float64
	}{
		{"success", func() (*Envelope, error) { return Success("ok") }, KindSuccess, 0.9},
		{"error", func() (*Envelope, error) { return Error("boom") }, KindError, 1.0},
		{"info", func() (*Envelope, error) { return Info("fyi") }, KindInfo, 0.8},
		{"warning", func() (*Envelope, error) { return Warning("careful") }, KindWarning, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.build()
			if err != nil {
				t.Fatalf("factory error: %v", err)
			}
			if e.Type != tt.want {
				t.Errorf("type = %q, want %q", e.Type, tt.want)
			}
			if e.Confidence == nil || *e.Confidence != tt.wantC {
				t.Errorf("confidence = %v, want %v", e.Confidence, tt.wantC)
			}
			if e.Timestamp == "" {
				t.Error("timestamp not set")
			}
			if _, err := time.Parse(time.RFC3339Nano, e.Timestamp); err != nil {
				t.Errorf("timestamp %q not RFC 3339: %v", e.Timestamp, err)
			}
		})
	}
}

func TestFactoryExplicitConfidence(t *testing.T) {
	e, err := Success("ok", WithConfidence(0.42))
	if err != nil {
		t.Fatalf("Success error: %v", err)
	}
	if e.Confidence == nil || *e.Confidence != 0.42 {
		t.Errorf("confidence = %v, want 0.42", e.Confidence)
	}
}

func TestConfidenceOutOfRange(t *testing.T) {
	for _, c := range []float64{-0.1, 1.01, 5} {
		if _, err := Info("hi", WithConfidence(c)); err == nil {
			t.Errorf("confidence %v accepted, want validation error", c)
		}
	}
}

func TestNewRejectsBadInputs(t *testing.T) {
	if _, err := New(Kind("fatal"), "msg"); err == nil {
		t.Error("unknown kind accepted")
	}
	if _, err := New(KindInfo, ""); err == nil {
		t.Error("empty message accepted")
	}
}

func TestDecodeValidates(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", `{"type":"success","message":"ok","confidence":0.9}`, false},
		{"unknown fields ignored", `{"type":"info","message":"hi","extra":"junk","more":1}`, false},
		{"bad kind", `{"type":"catastrophe","message":"ok"}`, true},
		{"missing message", `{"type":"success"}`, true},
		{"confidence too high", `{"type":"success","message":"ok","confidence":1.5}`, true},
		{"not an object", `[1,2,3]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeAssignsTimestamp(t *testing.T) {
	e, err := Decode([]byte(`{"type":"info","message":"hi"}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if e.Timestamp == "" {
		t.Error("timestamp not assigned for input without one")
	}
}

func TestFromMap(t *testing.T) {
	e, err := FromMap(map[string]any{
		"type":       "warning",
		"message":    "disk almost full",
		"confidence": 0.6,
		"data":       map[string]any{"category": "storage"},
	})
	if err != nil {
		t.Fatalf("FromMap error: %v", err)
	}
	if e.Type != KindWarning {
		t.Errorf("type = %q, want warning", e.Type)
	}
	if e.Data["category"] != "storage" {
		t.Errorf("data category = %v, want storage", e.Data["category"])
	}
}

func TestJSONRoundTrip(t *testing.T) {
	e, err := Error("api down",
		WithErrorDetails("HTTP 503: unavailable"),
		WithSuggestions("Try again later"),
	)
	if err != nil {
		t.Fatalf("Error factory: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(e.JSON()), &decoded); err != nil {
		t.Fatalf("JSON() not parseable: %v", err)
	}
	if decoded["type"] != "error" {
		t.Errorf("type = %v, want error", decoded["type"])
	}
	if decoded["error_details"] != "HTTP 503: unavailable" {
		t.Errorf("error_details = %v", decoded["error_details"])
	}
	if !strings.Contains(e.JSON(), "\n  ") {
		t.Error("JSON() should be indented")
	}
}

func TestFormattedTextSectionOrder(t *testing.T) {
	e, err := Error("network is down",
		WithData(map[string]any{
			"category":        "network",
			"steps":           []string{"Check the cable", "Restart the router"},
			"solution":        "Reconnect",
			"additional_info": "Common after power loss",
		}),
		WithActions("Run diagnostics"),
		WithSuggestions("Call your ISP"),
		WithErrorDetails("eth0 link down"),
	)
	if err != nil {
		t.Fatalf("Error factory: %v", err)
	}

	text := e.FormattedText()
	sections := []string{
		"network is down",
		"Category: network",
		"1. Check the cable",
		"2. Restart the router",
		"Solution: Reconnect",
		"Additional info: Common after power loss",
		"• Run diagnostics",
		"• Call your ISP",
		"Error details: eth0 link down",
		"Confidence: 100%",
		"Time: ",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(text, s)
		if idx < 0 {
			t.Fatalf("section %q missing from:\n%s", s, text)
		}
		if idx < last {
			t.Errorf("section %q out of order", s)
		}
		last = idx
	}
}

func TestFormattedTextOmitsAbsentSections(t *testing.T) {
	e, err := Info("just a note")
	if err != nil {
		t.Fatalf("Info error: %v", err)
	}
	text := e.FormattedText()

	for _, banned := range []string{"Category", "Step-by-step", "Solution", "Additional info", "Recommended actions", "Suggestions", "Error details"} {
		if strings.Contains(text, banned) {
			t.Errorf("absent section %q rendered:\n%s", banned, text)
		}
	}
	if !strings.Contains(text, "Confidence: 80%") {
		t.Errorf("default confidence line missing:\n%s", text)
	}
}

func TestErrorDetailsOnlyRenderedForErrorKind(t *testing.T) {
	e, err := Info("note", WithErrorDetails("should not appear"))
	if err != nil {
		t.Fatalf("Info error: %v", err)
	}
	if strings.Contains(e.FormattedText(), "should not appear") {
		t.Error("error details rendered for non-error kind")
	}
}

func TestConfidenceMarkerTiers(t *testing.T) {
	tests := []struct {
		confidence float64
		want       string
	}{
		{0.95, "🟢"},
		{0.81, "🟢"},
		{0.8, "🟡"},
		{0.51, "🟡"},
		{0.5, "🔴"},
		{0.1, "🔴"},
	}
	for _, tt := range tests {
		if got := confidenceMarker(tt.confidence); got != tt.want {
			t.Errorf("confidenceMarker(%v) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}

func TestStepsFromDecodedJSON(t *testing.T) {
	// Steps arrive as []any when the envelope comes from model JSON.
	e, err := Decode([]byte(`{"type":"success","message":"ok","data":{"steps":["one","two"]}}`))
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	text := e.FormattedText()
	if !strings.Contains(text, "1. one") || !strings.Contains(text, "2. two") {
		t.Errorf("steps not rendered from []any:\n%s", text)
	}
}
