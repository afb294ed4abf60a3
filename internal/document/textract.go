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

package document

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// FromTextract converts Textract blocks into the package's Block type
func FromTextract(in []types.Block) []Block {
	out := make([]Block, 0, len(in))
	for _, b := range in {
		block := Block{
			ID:          aws.ToString(b.Id),
			Type:        BlockType(b.BlockType),
			Text:        aws.ToString(b.Text),
			RowIndex:    int(aws.ToInt32(b.RowIndex)),
			ColumnIndex: int(aws.ToInt32(b.ColumnIndex)),
		}
		for _, e := range b.EntityTypes {
			block.EntityTypes = append(block.EntityTypes, string(e))
		}
		for _, rel := range b.Relationships {
			block.Relationships = append(block.Relationships, Relationship{
				Type: string(rel.Type),
				IDs:  rel.Ids,
			})
		}
		out = append(out, block)
	}
	return out
}
