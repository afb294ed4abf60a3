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

// Package document turns the flat block graph returned by a forms/OCR service
// into text, key-value pairs and tables.
package document

import (
	"sort"
	"strings"
)

// BlockType identifies the kind of node in the block graph
type BlockType string

// Block types that take part in reconstruction
const (
	BlockLine        BlockType = "LINE"
	BlockWord        BlockType = "WORD"
	BlockKeyValueSet BlockType = "KEY_VALUE_SET"
	BlockTable       BlockType = "TABLE"
	BlockCell        BlockType = "CELL"
)

// Entity types carried by KEY_VALUE_SET blocks
const (
	EntityKey   = "KEY"
	EntityValue = "VALUE"
)

// Relationship types
const (
	RelationChild = "CHILD"
	RelationValue = "VALUE"
)

// Relationship links a block to other blocks by id
type Relationship struct {
	Type string
	IDs  []string
}

// Block is one node of the graph
type Block struct {
	ID            string
	Type          BlockType
	EntityTypes   []string
	Text          string
	RowIndex      int
	ColumnIndex   int
	Relationships []Relationship
}

// KeyValue is a resolved form field
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Table holds cell text ordered by row and then by column
type Table struct {
	Rows [][]string `json:"rows"`
}

// Extraction is the reconstructed content of a document
type Extraction struct {
	FullText      string     `json:"full_text"`
	KeyValuePairs []KeyValue `json:"key_value_pairs"`
	Tables        []Table    `json:"tables"`
}

func (b Block) hasEntity(entity string) bool {
	for _, e := range b.EntityTypes {
		if e == entity {
			return true
		}
	}
	return false
}

func (b Block) related(relTypes ...string) []string {
	var ids []string
	for _, rel := range b.Relationships {
		for _, t := range relTypes {
			if rel.Type == t {
				ids = append(ids, rel.IDs...)
				break
			}
		}
	}
	return ids
}

// Reconstruct builds an Extraction from blocks. Lines keep their input order;
// a KEY without a resolvable non-empty VALUE is left out.
func Reconstruct(blocks []Block) Extraction {
	byID := make(map[string]Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}

	result := Extraction{Tables: []Table{}}

	var lines []string
	for _, b := range blocks {
		if b.Type == BlockLine {
			lines = append(lines, b.Text)
		}
	}
	result.FullText = strings.Join(lines, "\n")

	result.KeyValuePairs = resolveKeyValues(blocks, byID)

	for _, b := range blocks {
		if b.Type != BlockTable {
			continue
		}
		if table, ok := resolveTable(b, byID); ok {
			result.Tables = append(result.Tables, table)
		}
	}

	return result
}

type formKey struct {
	text    string
	targets map[string]bool
	value   string
	claimed bool
}

func resolveKeyValues(blocks []Block, byID map[string]Block) []KeyValue {
	var keys []*formKey
	for _, b := range blocks {
		if b.Type != BlockKeyValueSet || !b.hasEntity(EntityKey) {
			continue
		}
		k := &formKey{text: wordText(b, byID), targets: make(map[string]bool)}
		for _, id := range b.related(RelationChild, RelationValue) {
			k.targets[id] = true
		}
		keys = append(keys, k)
	}

	for _, b := range blocks {
		if b.Type != BlockKeyValueSet || !b.hasEntity(EntityValue) {
			continue
		}
		for _, k := range keys {
			if !k.claimed && k.targets[b.ID] {
				k.claimed = true
				k.value = wordText(b, byID)
				break
			}
		}
	}

	pairs := []KeyValue{}
	for _, k := range keys {
		if k.value != "" {
			pairs = append(pairs, KeyValue{Key: k.text, Value: k.value})
		}
	}
	return pairs
}

func wordText(b Block, byID map[string]Block) string {
	var words []string
	for _, id := range b.related(RelationChild) {
		child, ok := byID[id]
		if ok && child.Type == BlockWord {
			words = append(words, child.Text)
		}
	}
	return strings.TrimSpace(strings.Join(words, " "))
}

type cell struct {
	column int
	text   string
}

func resolveTable(table Block, byID map[string]Block) (Table, bool) {
	rows := make(map[int][]cell)
	for _, id := range table.related(RelationChild) {
		c, ok := byID[id]
		if !ok || c.Type != BlockCell {
			continue
		}
		rows[c.RowIndex] = append(rows[c.RowIndex], cell{column: c.ColumnIndex, text: wordText(c, byID)})
	}
	if len(rows) == 0 {
		return Table{}, false
	}

	rowIndexes := make([]int, 0, len(rows))
	for idx := range rows {
		rowIndexes = append(rowIndexes, idx)
	}
	sort.Ints(rowIndexes)

	out := Table{Rows: make([][]string, 0, len(rowIndexes))}
	for _, idx := range rowIndexes {
		cells := rows[idx]
		sort.SliceStable(cells, func(i, j int) bool { return cells[i].column < cells[j].column })
		texts := make([]string, len(cells))
		for i, c := range cells {
			texts[i] = c.text
		}
		out.Rows = append(out.Rows, texts)
	}
	return out, true
}
