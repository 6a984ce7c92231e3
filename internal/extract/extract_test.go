package extract

import (
	"strings"
	"testing"
)

func TestObject(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantFound bool
		wantKey   string // key expected in the result when found
		wantVal   any
	}{
		{
			name:      "empty input",
			text:      "",
			wantFound: false,
		},
		{
			name:      "whitespace only",
			text:      "   \n\t  ",
			wantFound: false,
		},
		{
			name:      "plain prose",
			text:      "Sorry, I can only answer in plain text today.",
			wantFound: false,
		},
		{
			name:      "pure JSON object",
			text:      `{"type": "success", "message": "ok"}`,
			wantFound: true,
			wantKey:   "message",
			wantVal:   "ok",
		},
		{
			name:      "pure JSON with surrounding whitespace",
			text:      "\n  {\"type\": \"info\", \"message\": \"hi\"}  \n",
			wantFound: true,
			wantKey:   "message",
			wantVal:   "hi",
		},
		{
			name:      "json fenced block with prose",
			text:      "Here is the answer:\n```json\n{\"type\": \"info\", \"message\": \"hi\"}\n```\nHope that helps!",
			wantFound: true,
			wantKey:   "message",
			wantVal:   "hi",
		},
		{
			name:      "untagged fenced block",
			text:      "Result:\n```\n{\"category\": \"network\"}\n```",
			wantFound: true,
			wantKey:   "category",
			wantVal:   "network",
		},
		{
			name:      "bare object embedded in prose",
			text:      `The response object {"status": "fine"} covers it.`,
			wantFound: true,
			wantKey:   "status",
			wantVal:   "fine",
		},
		{
			name:      "nested object via greedy span",
			text:      `Answer: {"data": {"category": "dns"}, "message": "done"} end.`,
			wantFound: true,
			wantKey:   "message",
			wantVal:   "done",
		},
		{
			name: "malformed fenced block with no recoverable span",
			// The greedy brace span covers the broken fence through the
			// trailing object, so nothing parses.
			text:      "```json\n{\"broken\": \n```\nbut also {\"salvaged\": true}",
			wantFound: false,
		},
		{
			name:      "broken fence salvaged by brace span",
			text:      "```json\n{\"salvaged\": true}",
			wantFound: true,
			wantKey:   "salvaged",
			wantVal:   true,
		},
		{
			name: "second fenced candidate tried after first fails",
			text: "```json\n{\"bad\": }\n```\nand then\n```json\n{\"good\": 1}\n```",
			// The greedy brace span would swallow both blocks into one
			// invalid candidate, so recovery must come from trying every
			// fenced match.
			wantFound: true,
			wantKey:   "good",
			wantVal:   float64(1),
		},
		{
			name:      "unbalanced braces",
			text:      "{ this is not JSON",
			wantFound: false,
		},
		{
			name:      "JSON array is not an object",
			text:      `[1, 2, 3]`,
			wantFound: false,
		},
		{
			name:      "JSON null is not an object",
			text:      `null`,
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Object(tt.text)
			if found != tt.wantFound {
				t.Fatalf("Object() found = %v, want %v (got: %v)", found, tt.wantFound, got)
			}
			if !tt.wantFound {
				return
			}
			if got[tt.wantKey] != tt.wantVal {
				t.Errorf("Object()[%q] = %v, want %v", tt.wantKey, got[tt.wantKey], tt.wantVal)
			}
		})
	}
}

func TestObjectPrefersDirectParseOverFences(t *testing.T) {
	// A whole-string parse that succeeds must win even when the text
	// would also match later patterns.
	text := `{"message": "direct"}`
	got, found := Object(text)
	if !found || got["message"] != "direct" {
		t.Fatalf("Object() = %v, %v", got, found)
	}
}

func TestObjectIsTotal(t *testing.T) {
	// Throw adversarial strings at the extractor; none may panic.
	inputs := []string{
		"",
		"{{{{{{",
		"}}}}",
		"```json",
		"``````",
		strings.Repeat("{", 10000),
		"\x00\xff\xfe",
		"```json\n" + strings.Repeat("a", 5000) + "\n```",
	}
	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Object(%.20q...) panicked: %v", in, r)
				}
			}()
			Object(in)
		}()
	}
}
