// Package envelope defines the single structured response type returned
// for every request outcome — success, model errors, transport failures,
// and parse fallbacks all produce the same shape. Envelopes are immutable
// once constructed; transformations build fresh instances.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Kind classifies an envelope.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
)

// Valid reports whether k is one of the four defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSuccess, KindError, KindInfo, KindWarning:
		return true
	}
	return false
}

// Default confidence applied by each factory when the caller does not
// supply one.
const (
	defaultSuccessConfidence = 0.9
	defaultErrorConfidence   = 1.0
	defaultInfoConfidence    = 0.8
	defaultWarningConfidence = 0.7
)

// Envelope is the sole response type produced by the completion pipeline
// and consumed by the messaging layer. Treat a constructed Envelope as
// read-only: it is shared freely across goroutines without copying.
type Envelope struct {
	Type         Kind           `json:"type"`
	Message      string         `json:"message"`
	Data         map[string]any `json:"data,omitempty"`
	Actions      []string       `json:"actions,omitempty"`
	Confidence   *float64       `json:"confidence,omitempty"`
	Timestamp    string         `json:"timestamp"`
	Suggestions  []string       `json:"suggestions,omitempty"`
	ErrorDetails string         `json:"error_details,omitempty"`
}

// Option customizes an envelope under construction.
type Option func(*Envelope)

// WithData attaches the open-ended data mapping (category, solution,
// steps, additional_info by convention — no schema is enforced).
func WithData(data map[string]any) Option {
	return func(e *Envelope) { e.Data = data }
}

// WithActions attaches the ordered list of suggested next actions.
func WithActions(actions ...string) Option {
	return func(e *Envelope) { e.Actions = actions }
}

// WithConfidence overrides the factory's default confidence. The value
// is validated in [New]; out-of-range values are rejected, not clamped.
func WithConfidence(c float64) Option {
	return func(e *Envelope) { e.Confidence = &c }
}

// WithSuggestions attaches remediation suggestions (used mainly on
// error envelopes).
func WithSuggestions(suggestions ...string) Option {
	return func(e *Envelope) { e.Suggestions = suggestions }
}

// WithErrorDetails attaches diagnostic detail. Meaningful only on
// error envelopes; the renderer ignores it for other kinds.
func WithErrorDetails(details string) Option {
	return func(e *Envelope) { e.ErrorDetails = details }
}

// New constructs a validated envelope. The timestamp is assigned here
// and never changes. Construction fails only for an unknown kind, an
// empty message, or a confidence outside [0, 1].
func New(kind Kind, message string, opts ...Option) (*Envelope, error) {
	e := &Envelope{
		Type:      kind,
		Message:   message,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Success builds a success envelope (default confidence 0.9).
func Success(message string, opts ...Option) (*Envelope, error) {
	return newWithDefault(KindSuccess, message, defaultSuccessConfidence, opts)
}

// Error builds an error envelope (default confidence 1.0).
func Error(message string, opts ...Option) (*Envelope, error) {
	return newWithDefault(KindError, message, defaultErrorConfidence, opts)
}

// Info builds an informational envelope (default confidence 0.8).
func Info(message string, opts ...Option) (*Envelope, error) {
	return newWithDefault(KindInfo, message, defaultInfoConfidence, opts)
}

// Warning builds a warning envelope (default confidence 0.7).
func Warning(message string, opts ...Option) (*Envelope, error) {
	return newWithDefault(KindWarning, message, defaultWarningConfidence, opts)
}

func newWithDefault(kind Kind, message string, confidence float64, opts []Option) (*Envelope, error) {
	e, err := New(kind, message, opts...)
	if err != nil {
		return nil, err
	}
	if e.Confidence == nil {
		e.Confidence = &confidence
	}
	return e, nil
}

func (e *Envelope) validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("invalid envelope type %q", string(e.Type))
	}
	if e.Message == "" {
		return fmt.Errorf("envelope message must not be empty")
	}
	if e.Confidence != nil && (*e.Confidence < 0 || *e.Confidence > 1) {
		return fmt.Errorf("confidence %v out of range [0, 1]", *e.Confidence)
	}
	return nil
}

// FromMap constructs an envelope from a generic mapping, typically the
// output of JSON extraction from model text. Known fields are validated
// strictly; unknown keys are ignored. A missing timestamp is assigned
// at construction, preserving the always-set invariant.
func FromMap(m map[string]any) (*Envelope, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode candidate object: %w", err)
	}
	return Decode(raw)
}

// Decode parses JSON into a validated envelope. Unknown fields are
// ignored; known fields that fail validation reject the whole object.
func Decode(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().Format(time.RFC3339Nano)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// JSON renders the envelope as indented JSON with the stable field set.
// This is the wire form delivered to chat users.
func (e *Envelope) JSON() string {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		// Envelope fields are all plain JSON-encodable types, so this
		// is unreachable for validated envelopes.
		return fmt.Sprintf(`{"type": "error", "message": "encode failed: %s"}`, err)
	}
	return string(data)
}

// Kind markers for the rendered text form.
var kindMarkers = map[Kind]string{
	KindSuccess: "✅",
	KindError:   "❌",
	KindInfo:    "ℹ️",
	KindWarning: "⚠️",
}

// FormattedText renders the envelope for human reading. Sections appear
// in a fixed order — category, steps, solution, additional info, actions,
// suggestions, error details (error kind only), confidence, timestamp —
// and absent sections are omitted entirely.
func (e *Envelope) FormattedText() string {
	var b strings.Builder

	marker := kindMarkers[e.Type]
	if marker == "" {
		marker = kindMarkers[KindInfo]
	}
	fmt.Fprintf(&b, "%s %s\n", marker, e.Message)

	if category, ok := e.Data["category"]; ok {
		fmt.Fprintf(&b, "\n🏷️ Category: %v\n", category)
	}
	if steps := stringSlice(e.Data["steps"]); len(steps) > 0 {
		b.WriteString("\n📋 Step-by-step solution:\n")
		for i, step := range steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
	}
	if solution, ok := e.Data["solution"]; ok {
		fmt.Fprintf(&b, "\n💡 Solution: %v\n", solution)
	}
	if info, ok := e.Data["additional_info"]; ok {
		fmt.Fprintf(&b, "\n📝 Additional info: %v\n", info)
	}

	if len(e.Actions) > 0 {
		b.WriteString("\n🎯 Recommended actions:\n")
		for _, action := range e.Actions {
			fmt.Fprintf(&b, "• %s\n", action)
		}
	}
	if len(e.Suggestions) > 0 {
		b.WriteString("\n💡 Suggestions:\n")
		for _, suggestion := range e.Suggestions {
			fmt.Fprintf(&b, "• %s\n", suggestion)
		}
	}
	if e.Type == KindError && e.ErrorDetails != "" {
		fmt.Fprintf(&b, "\n🔍 Error details: %s\n", e.ErrorDetails)
	}
	if e.Confidence != nil {
		fmt.Fprintf(&b, "\n%s Confidence: %.0f%%\n", confidenceMarker(*e.Confidence), *e.Confidence*100)
	}
	fmt.Fprintf(&b, "\n🕐 Time: %s\n", e.Timestamp)

	return b.String()
}

// confidenceMarker returns the three-tier qualitative marker:
// high above 0.8, medium above 0.5, low otherwise.
func confidenceMarker(c float64) string {
	switch {
	case c > 0.8:
		return "🟢"
	case c > 0.5:
		return "🟡"
	default:
		return "🔴"
	}
}

// stringSlice coerces a data value into []string. Model output decodes
// list fields as []any, so both representations are accepted.
func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	}
	return nil
}
