// Package extract locates JSON objects inside arbitrary model output.
// Models asked for JSON-only replies still wrap objects in prose, fenced
// code blocks, or partial markup, so extraction runs an ordered list of
// strategies and takes the first candidate that parses.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Candidate patterns, in priority order after the whole-string attempt:
// a fenced block tagged json, any fenced block, then a greedy brace span
// (first '{' through last '}').
var (
	fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	fencedAnyPattern  = regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```")
	braceSpanPattern  = regexp.MustCompile(`(?s)\{.*\}`)
)

// strategy produces zero or more candidate substrings from text.
type strategy func(text string) []string

var strategies = []strategy{
	wholeText,
	submatches(fencedJSONPattern),
	submatches(fencedAnyPattern),
	firstMatch(braceSpanPattern),
}

// Object attempts to locate a parseable JSON object in text. Strategies
// run in order and every candidate of a strategy is tried before moving
// on; the first candidate that parses as an object wins. Object is total:
// it never fails, it only reports found or not found.
func Object(text string) (map[string]any, bool) {
	for _, s := range strategies {
		for _, candidate := range s(text) {
			var obj map[string]any
			if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &obj); err == nil && obj != nil {
				return obj, true
			}
		}
	}
	return nil, false
}

func wholeText(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	return []string{trimmed}
}

func submatches(re *regexp.Regexp) strategy {
	return func(text string) []string {
		var out []string
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out = append(out, m[1])
		}
		return out
	}
}

func firstMatch(re *regexp.Regexp) strategy {
	return func(text string) []string {
		if m := re.FindString(text); m != "" {
			return []string{m}
		}
		return nil
	}
}
