package yandexgpt

import (
	"strings"
	"testing"
)

func TestBuildPrompt_ContainsSchema(t *testing.T) {
	prompt := BuildPrompt("how do I fix DNS?")

	// Every envelope field must appear literally so the model learns
	// the exact shape.
	for _, field := range []string{`"type"`, `"message"`, `"data"`, `"actions"`, `"confidence"`, `"timestamp"`, `"suggestions"`, `"error_details"`} {
		if !strings.Contains(prompt, field) {
			t.Errorf("prompt missing schema field %s", field)
		}
	}
	if !strings.Contains(prompt, "success|error|info|warning") {
		t.Error("prompt missing the kind enumeration")
	}
}

func TestBuildPrompt_MandatesJSONOnly(t *testing.T) {
	prompt := BuildPrompt("x")
	if !strings.Contains(prompt, "ONLY in JSON") {
		t.Error("prompt must mandate JSON-only output")
	}
}

func TestBuildPrompt_ContainsBothWorkedExamples(t *testing.T) {
	prompt := BuildPrompt("x")
	if !strings.Contains(prompt, "Technical question:") {
		t.Error("prompt missing the technical worked example")
	}
	if !strings.Contains(prompt, "General question:") {
		t.Error("prompt missing the conversational worked example")
	}
}

func TestBuildPrompt_UserTextDelimitedAtEnd(t *testing.T) {
	prompt := BuildPrompt("my ssh keys are gone")

	idx := strings.Index(prompt, "REQUEST: my ssh keys are gone")
	if idx < 0 {
		t.Fatal("user text not delimited as the request")
	}
	if !strings.HasSuffix(strings.TrimSpace(prompt), "RESPONSE:") {
		t.Error("prompt must terminate with the response cue")
	}
}

func TestBuildPrompt_Pure(t *testing.T) {
	if BuildPrompt("same input") != BuildPrompt("same input") {
		t.Error("BuildPrompt is not deterministic")
	}
}
