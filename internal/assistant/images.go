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

package assistant

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/your-org/ai-services-demos/internal/resilience"
	"github.com/your-org/ai-services-demos/internal/session"
)

// DefaultMaxImageBytes is the per-image ceiling of the Converse API (3.75 MB)
const DefaultMaxImageBytes int64 = 3932160

// imageFormats maps accepted file extensions to Converse image formats
var imageFormats = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".webp": "webp",
}

// ImageUpload is a raw uploaded image
type ImageUpload struct {
	Filename string
	Data     []byte
}

// ImageBlock validates an upload and converts it to a message content block. Images
// must be at most maxBytes and named with a jpeg, png, gif or webp extension.
func ImageBlock(upload ImageUpload, maxBytes int64) (session.ContentBlock, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	if int64(len(upload.Data)) > maxBytes {
		return session.ContentBlock{}, resilience.NewSentinel(
			fmt.Sprintf("File '%s' exceeds maximum size of %.1f MB", upload.Filename, float64(maxBytes)/(1024*1024)),
			resilience.ErrInvalidInput)
	}
	if upload.Filename == "" {
		return session.ContentBlock{}, resilience.NewSentinel(
			"File must have a filename to determine file type.", resilience.ErrInvalidInput)
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	if ext == "" {
		return session.ContentBlock{}, resilience.NewSentinel(
			fmt.Sprintf("Unable to determine file type for '%s'. Only image files are supported (JPEG, PNG, GIF, WebP).", upload.Filename),
			resilience.ErrInvalidInput)
	}
	format, ok := imageFormats[ext]
	if !ok {
		return session.ContentBlock{}, resilience.NewSentinel(
			fmt.Sprintf("File type '%s' is not supported. Supported: .jpg, .jpeg, .png, .gif, .webp", ext),
			resilience.ErrInvalidInput)
	}

	return session.ContentBlock{Image: &session.Image{Format: format, Bytes: upload.Data}}, nil
}
