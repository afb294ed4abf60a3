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

package speech

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/ai-services-demos/internal/resilience"
)

type fakePolly struct {
	input *polly.SynthesizeSpeechInput
	err   error
}

func (f *fakePolly) SynthesizeSpeech(_ context.Context, in *polly.SynthesizeSpeechInput, _ ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &polly.SynthesizeSpeechOutput{AudioStream: io.NopCloser(strings.NewReader("ID3mp3"))}, nil
}

func TestVoiceFor(t *testing.T) {
	assert.Equal(t, "Lupe", VoiceFor("es"))
	assert.Equal(t, "Mizuki", VoiceFor("JA"))
	assert.Equal(t, DefaultVoice, VoiceFor("sw"))
}

func TestSynthesize(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audio")
	client := &fakePolly{}
	s, err := NewSynthesizer(client, dir, "", nil)
	require.NoError(t, err)

	got, err := s.Synthesize(context.Background(), strings.Repeat("a", MaxTextLength+10), "Joanna")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got.AudioURL, AudioURLPrefix))
	assert.Len(t, got.Text, MaxTextLength)
	assert.Equal(t, "Joanna", got.VoiceID)
	assert.Equal(t, "neural", string(client.input.Engine))
	assert.Len(t, aws.ToString(client.input.Text), MaxTextLength)

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(got.AudioURL, AudioURLPrefix)))
	require.NoError(t, err)
	assert.Equal(t, "ID3mp3", string(data))
}

func TestSynthesizeErrors(t *testing.T) {
	s, err := NewSynthesizer(&fakePolly{}, t.TempDir(), "standard", nil)
	require.NoError(t, err)

	_, err = s.Synthesize(context.Background(), " ", "Joanna")
	assert.ErrorIs(t, err, ErrEmptyText)

	s, err = NewSynthesizer(&fakePolly{err: errors.New("TextLengthExceededException")}, t.TempDir(), "", nil)
	require.NoError(t, err)
	_, err = s.Synthesize(context.Background(), "hello", "Joanna")
	assert.ErrorIs(t, err, resilience.ErrDependency)
}
