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

// Package chunker packs texts into size-bounded batches and trims text to
// byte or character ceilings without splitting multi-byte characters.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Item is a text queued for packing, tagged with its position in the caller's input
type Item struct {
	Index int
	Text  string
}

// Pack greedily groups items into batches whose joined size, texts plus the
// delimiter between each pair, does not exceed maxBytes. Item order is kept.
// An item that is larger than maxBytes on its own gets a batch of its own, so
// callers should truncate with TruncateBytes first.
func Pack(items []Item, delimiter string, maxBytes int) [][]Item {
	if len(items) == 0 {
		return nil
	}

	var batches [][]Item
	var current []Item
	currentSize := 0

	for _, item := range items {
		size := len(item.Text)

		if len(current) > 0 && currentSize+len(delimiter)+size > maxBytes {
			batches = append(batches, current)
			current = nil
			currentSize = 0
		}

		if len(current) > 0 {
			currentSize += len(delimiter)
		}
		current = append(current, item)
		currentSize += size
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// Join concatenates the batch texts with the delimiter
func Join(batch []Item, delimiter string) string {
	texts := make([]string, len(batch))
	for i, item := range batch {
		texts[i] = item.Text
	}
	return strings.Join(texts, delimiter)
}

// Split reverses Join for a batch of n items. Missing parts are returned as empty
// strings and surplus parts are dropped, so the result always has length n.
func Split(joined, delimiter string, n int) []string {
	parts := make([]string, n)
	if n == 0 {
		return parts
	}

	separator := strings.TrimSpace(delimiter)
	if separator == "" {
		separator = delimiter
	}

	pieces := strings.Split(joined, separator)
	for i := 0; i < n && i < len(pieces); i++ {
		parts[i] = strings.TrimSpace(pieces[i])
	}
	return parts
}

// TruncateBytes cuts text to at most maxBytes bytes on a rune boundary
func TruncateBytes(text string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(text) <= maxBytes {
		return text
	}

	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// TruncateRunes cuts text to at most maxRunes characters
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	count := 0
	for i := range text {
		if count == maxRunes {
			return text[:i]
		}
		count++
	}
	return text
}

// Snippet returns at most maxRunes characters of text, preferring to end on a
// sentence boundary when one exists in the second half of the window.
func Snippet(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	truncated := TruncateRunes(text, maxRunes)
	if truncated == text {
		return text
	}

	if sentence := findSentenceBreak(truncated); utf8.RuneCountInString(sentence) > maxRunes/2 {
		return strings.TrimSpace(sentence)
	}
	return strings.TrimSpace(truncated)
}

// findSentenceBreak finds the last sentence boundary in the text
func findSentenceBreak(text string) string {
	sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

	lastIndex := -1
	for _, ender := range sentenceEnders {
		if idx := strings.LastIndex(text, ender); idx >= 0 && idx+len(ender) > lastIndex {
			lastIndex = idx + len(ender)
		}
	}

	if lastIndex > 0 {
		return text[:lastIndex]
	}

	return ""
}
