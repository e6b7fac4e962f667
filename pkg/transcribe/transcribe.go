package transcribe

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// Transcriber converts a finished utterance of recorded audio into plain
// UTF-8 text. The sync core consumes the text only; it never touches audio.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// WhisperTranscriber implements Transcriber using OpenAI Whisper
type WhisperTranscriber struct {
	client openai.Client
}

// NewWhisperTranscriber creates a Whisper-backed transcriber
func NewWhisperTranscriber(apiKey string) *WhisperTranscriber {
	return &WhisperTranscriber{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

// Transcribe uploads the audio file and returns the transcribed text
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  file,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create transcription: %w", err)
	}

	return resp.Text, nil
}
