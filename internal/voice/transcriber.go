// Package voice provides speech-to-text for inbound WhatsApp voice notes.
package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

const transcriptionsURL = "https://api.openai.com/v1/audio/transcriptions"

// Transcriber converts an audio URL to text. An empty string means "could
// not understand"; callers surface a retry prompt instead of an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

// Whisper transcribes via the OpenAI Whisper API. Media is downloaded
// first because Twilio media URLs require basic auth the API cannot pass
// through.
type Whisper struct {
	download   *resty.Client
	upload     *resty.Client
	model      string
	mediaUser  string
	mediaToken string
	log        zerolog.Logger
}

// NewWhisper builds a Whisper transcriber. mediaUser/mediaToken are the
// Twilio credentials used to fetch the voice attachment.
func NewWhisper(apiKey, whisperModel, mediaUser, mediaToken string, log zerolog.Logger) *Whisper {
	return &Whisper{
		download:   resty.New().SetTimeout(30 * time.Second),
		upload:     resty.New().SetTimeout(60 * time.Second).SetAuthToken(apiKey),
		model:      whisperModel,
		mediaUser:  mediaUser,
		mediaToken: mediaToken,
		log:        log.With().Str("component", "voice").Logger(),
	}
}

func (w *Whisper) Transcribe(ctx context.Context, audioURL string) (string, error) {
	req := w.download.R().SetContext(ctx)
	if w.mediaUser != "" {
		req.SetBasicAuth(w.mediaUser, w.mediaToken)
	}
	audio, err := req.Get(audioURL)
	if err != nil {
		return "", err
	}
	if audio.StatusCode() != 200 {
		return "", fmt.Errorf("audio download status %d", audio.StatusCode())
	}

	resp, err := w.upload.R().
		SetContext(ctx).
		SetFileReader("file", "audio.ogg", bytesReader(audio.Body())).
		SetFormData(map[string]string{"model": w.model}).
		Post(transcriptionsURL)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("whisper status %d: %.200s", resp.StatusCode(), resp.String())
	}
	text := gjson.GetBytes(resp.Body(), "text").String()
	w.log.Info().Int("chars", len(text)).Msg("voice note transcribed")
	return text, nil
}

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

// Mock returns a canned transcript so local development works without an
// API key.
type Mock struct{}

func (Mock) Transcribe(ctx context.Context, audioURL string) (string, error) {
	return "This is a mock transcription. Configure OPENAI_API_KEY for real speech-to-text. Audio URL: " + audioURL, nil
}
