// Copyright 2025 AI Services Demos Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const delimiter = " ||| "

func items(texts ...string) []Item {
	out := make([]Item, len(texts))
	for i, text := range texts {
		out[i] = Item{Index: i, Text: text}
	}
	return out
}

func TestPack(t *testing.T) {
	tests := []struct {
		name            string
		texts           []string
		maxBytes        int
		expectedBatches int
	}{
		{name: "empty input", texts: nil, maxBytes: 100, expectedBatches: 0},
		{name: "single text fits", texts: []string{"Hello world"}, maxBytes: 100, expectedBatches: 1},
		{name: "several texts fit in one batch", texts: []string{"car", "door", "bumper"}, maxBytes: 100, expectedBatches: 1},
		{name: "delimiter counts toward the ceiling", texts: []string{"aaaa", "bbbb"}, maxBytes: 12, expectedBatches: 2},
		{name: "exact fit with delimiter", texts: []string{"aaaa", "bbbb"}, maxBytes: 13, expectedBatches: 1},
		{name: "oversized text gets its own batch", texts: []string{"a", strings.Repeat("x", 50), "b"}, maxBytes: 20, expectedBatches: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Pack(items(tt.texts...), delimiter, tt.maxBytes)
			if len(batches) != tt.expectedBatches {
				t.Errorf("Expected %d batches, got %d", tt.expectedBatches, len(batches))
			}
		})
	}
}

func TestPack_RespectsCeilingAndOrder(t *testing.T) {
	var texts []string
	for i := 0; i < 40; i++ {
		texts = append(texts, strings.Repeat("w", 10+i%7))
	}

	batches := Pack(items(texts...), delimiter, 100)

	next := 0
	for i, batch := range batches {
		joined := Join(batch, delimiter)
		if len(joined) > 100 {
			t.Errorf("Batch %d is %d bytes, above the ceiling", i, len(joined))
		}
		for _, item := range batch {
			if item.Index != next {
				t.Fatalf("Expected index %d, got %d", next, item.Index)
			}
			next++
		}
	}

	if next != len(texts) {
		t.Errorf("Expected all %d items to be packed, got %d", len(texts), next)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		joined   string
		n        int
		expected []string
	}{
		{name: "exact parts", joined: "uno ||| dos ||| tres", n: 3, expected: []string{"uno", "dos", "tres"}},
		{name: "provider dropped spaces", joined: "uno|||dos", n: 2, expected: []string{"uno", "dos"}},
		{name: "fewer parts are padded", joined: "uno ||| dos", n: 4, expected: []string{"uno", "dos", "", ""}},
		{name: "extra parts are dropped", joined: "uno ||| dos ||| tres", n: 2, expected: []string{"uno", "dos"}},
		{name: "zero items", joined: "", n: 0, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Split(tt.joined, delimiter, tt.n)
			if len(result) != len(tt.expected) {
				t.Fatalf("Expected %d parts, got %d", len(tt.expected), len(result))
			}
			for i := range tt.expected {
				if result[i] != tt.expected[i] {
					t.Errorf("Part %d: expected %q, got %q", i, tt.expected[i], result[i])
				}
			}
		})
	}
}

func TestTruncateBytes(t *testing.T) {
	if got := TruncateBytes("hello", 10); got != "hello" {
		t.Errorf("Expected short text unchanged, got %q", got)
	}

	if got := TruncateBytes("hello world", 5); got != "hello" {
		t.Errorf("Expected 'hello', got %q", got)
	}

	// "ñ" is two bytes; cutting in the middle must back off to the rune start
	got := TruncateBytes("añb", 2)
	if got != "a" {
		t.Errorf("Expected 'a', got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8, got %q", got)
	}

	if got := TruncateBytes("abc", 0); got != "" {
		t.Errorf("Expected empty string for zero ceiling, got %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("accidente", 4); got != "acci" {
		t.Errorf("Expected 'acci', got %q", got)
	}
	if got := TruncateRunes("ñññ", 2); got != "ññ" {
		t.Errorf("Expected 'ññ', got %q", got)
	}
	if got := TruncateRunes("short", 10); got != "short" {
		t.Errorf("Expected text unchanged, got %q", got)
	}
}

func TestSnippet(t *testing.T) {
	text := "My car was hit at the light. The bumper is cracked and the door will not open anymore."

	if got := Snippet(text, 200); got != text {
		t.Errorf("Expected full text when under the limit, got %q", got)
	}

	if got := Snippet(text, 40); got != "My car was hit at the light." {
		t.Errorf("Expected snippet to end on the sentence, got %q", got)
	}

	if got := Snippet("no sentence boundary in this text at all", 10); got != "no sentenc" {
		t.Errorf("Expected hard cut, got %q", got)
	}
}

func TestFindSentenceBreak(t *testing.T) {
	if got := findSentenceBreak("One. Two! Three"); got != "One. Two! " {
		t.Errorf("Expected last boundary, got %q", got)
	}
	if got := findSentenceBreak("no boundary"); got != "" {
		t.Errorf("Expected empty result, got %q", got)
	}
}
