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

// Package claims runs the insurance claim pipeline: language detection, text
// analysis, translation, speech and per-file document and image analysis.
package claims

import (
	"github.com/your-org/ai-services-demos/internal/document"
	"github.com/your-org/ai-services-demos/internal/speech"
	"github.com/your-org/ai-services-demos/internal/textanalysis"
	"github.com/your-org/ai-services-demos/internal/vision"
)

// File types reported per uploaded file
const (
	FileTypeImage   = "image"
	FileTypePDF     = "pdf"
	FileTypeUnknown = "unknown"
)

// Upload is one uploaded file
type Upload struct {
	Filename string
	Data     []byte
}

// Claim is a claim submission
type Claim struct {
	Description   string
	AccidentPhoto Upload
	Forms         []Upload
}

// TextractResult is the document extraction of one file
type TextractResult struct {
	document.Extraction
	TranslatedText string `json:"translated_text,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ClaimDescriptionResult holds everything derived from the claim text
type ClaimDescriptionResult struct {
	OriginalText         string                 `json:"original_text"`
	DetectedLanguage     string                 `json:"detected_language"`
	LanguageScore        float64                `json:"language_score"`
	Comprehend           textanalysis.Analysis  `json:"comprehend"`
	TranslatedComprehend *textanalysis.Analysis `json:"translated_comprehend"`
	Polly                *speech.Result         `json:"polly"`
}

// FileResult holds everything derived from one uploaded file. Results of steps
// that failed or did not run are null; images always carry a labels list.
type FileResult struct {
	Filename             string                 `json:"filename"`
	FileType             string                 `json:"file_type"`
	Textract             *TextractResult        `json:"textract"`
	Rekognition          *vision.Result         `json:"rekognition"`
	Comprehend           *textanalysis.Analysis `json:"comprehend"`
	TranslatedTextract   *TextractResult        `json:"translated_textract"`
	TranslatedComprehend *textanalysis.Analysis `json:"translated_comprehend"`
	Error                string                 `json:"error,omitempty"`
}

// ProcessingResult is the response of the claim pipeline
type ProcessingResult struct {
	DetectedLanguage string                 `json:"detected_language"`
	ClaimDescription ClaimDescriptionResult `json:"claim_description"`
	Files            []FileResult           `json:"files"`
	ProcessingStatus map[string]string      `json:"processing_status"`
}
