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

// Package vision labels images and reads text in them through Amazon Rekognition.
package vision

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"go.uber.org/zap"

	"github.com/your-org/ai-services-demos/internal/resilience"
)

// Label detection limits
const (
	MaxLabels     = 10
	MinConfidence = 70.0
)

// BoundingBox is a ratio-based box relative to the image size
type BoundingBox struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
}

// Instance is one located occurrence of a label
type Instance struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
}

// Label is a detected object or scene
type Label struct {
	Name           string     `json:"name"`
	Confidence     float64    `json:"confidence"`
	Categories     []string   `json:"categories"`
	Instances      []Instance `json:"instances"`
	TranslatedName string     `json:"translated_name,omitempty"`
}

// TextDetection is a line of text found in the image
type TextDetection struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Type       string  `json:"type"`
}

// Result is the outcome of image analysis
type Result struct {
	Labels         []Label         `json:"labels"`
	TextDetections []TextDetection `json:"text_detections"`
}

// LabelNames returns the label names in order
func (r Result) LabelNames() []string {
	names := make([]string, len(r.Labels))
	for i, l := range r.Labels {
		names[i] = l.Name
	}
	return names
}

// Client is the part of the Rekognition API this package uses
type Client interface {
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
	DetectText(ctx context.Context, params *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// Analyzer runs label and text detection
type Analyzer struct {
	client Client
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer
func NewAnalyzer(client Client, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{client: client, logger: logger}
}

// Analyze detects up to MaxLabels labels above MinConfidence and the LINE text
// detections of image
func (a *Analyzer) Analyze(ctx context.Context, image []byte) (Result, error) {
	labelsOut, err := a.client.DetectLabels(ctx, &rekognition.DetectLabelsInput{
		Image:         &types.Image{Bytes: image},
		MaxLabels:     aws.Int32(MaxLabels),
		MinConfidence: aws.Float32(MinConfidence),
	})
	if err != nil {
		a.logger.Error("Label detection failed", zap.Error(err))
		return Result{}, resilience.WrapDependency("rekognition", err)
	}

	textOut, err := a.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		a.logger.Error("Text detection failed", zap.Error(err))
		return Result{}, resilience.WrapDependency("rekognition", err)
	}

	result := Result{
		Labels:         make([]Label, 0, len(labelsOut.Labels)),
		TextDetections: []TextDetection{},
	}
	for _, l := range labelsOut.Labels {
		label := Label{
			Name:       aws.ToString(l.Name),
			Confidence: float64(aws.ToFloat32(l.Confidence)),
			Categories: make([]string, 0, len(l.Categories)),
			Instances:  make([]Instance, 0, len(l.Instances)),
		}
		for _, c := range l.Categories {
			label.Categories = append(label.Categories, aws.ToString(c.Name))
		}
		for _, inst := range l.Instances {
			var box BoundingBox
			if b := inst.BoundingBox; b != nil {
				box = BoundingBox{
					Width:  float64(aws.ToFloat32(b.Width)),
					Height: float64(aws.ToFloat32(b.Height)),
					Left:   float64(aws.ToFloat32(b.Left)),
					Top:    float64(aws.ToFloat32(b.Top)),
				}
			}
			label.Instances = append(label.Instances, Instance{
				BoundingBox: box,
				Confidence:  float64(aws.ToFloat32(inst.Confidence)),
			})
		}
		result.Labels = append(result.Labels, label)
	}

	for _, d := range textOut.TextDetections {
		if d.Type != types.TextTypesLine {
			continue
		}
		result.TextDetections = append(result.TextDetections, TextDetection{
			Text:       aws.ToString(d.DetectedText),
			Confidence: float64(aws.ToFloat32(d.Confidence)),
			Type:       string(d.Type),
		})
	}

	return result, nil
}
