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

package claims

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/your-org/ai-services-demos/internal/resilience"
)

// DefaultMaxFileBytes is the per-file upload limit
const DefaultMaxFileBytes = 10 * 1024 * 1024

var (
	imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true}

	// ErrEmptyFile is returned for zero-byte uploads
	ErrEmptyFile = resilience.NewSentinel("File is empty", resilience.ErrInvalidInput)
	// ErrFileTooLarge is returned for uploads above the size limit
	ErrFileTooLarge = resilience.NewSentinel("File is too large", resilience.ErrInvalidInput)
	// ErrUnsupportedType is returned for extensions outside the supported set
	ErrUnsupportedType = resilience.NewSentinel("Unsupported file type", resilience.ErrInvalidInput)
)

// ValidateFile checks size and extension and returns the file type
func ValidateFile(u Upload, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	if len(u.Data) == 0 {
		return FileTypeUnknown, ErrEmptyFile
	}
	if int64(len(u.Data)) > maxBytes {
		return FileTypeUnknown, fmt.Errorf("%w: file size exceeds %.1f MB", ErrFileTooLarge, float64(maxBytes)/(1024*1024))
	}

	ext := strings.ToLower(filepath.Ext(u.Filename))
	switch {
	case ext == ".pdf":
		return FileTypePDF, nil
	case imageExtensions[ext]:
		return FileTypeImage, nil
	default:
		return FileTypeUnknown, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}
