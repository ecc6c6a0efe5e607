package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/pkg/utils"
)

// audioExtensions are the audio formats the transcription endpoint accepts, in lookup order.
var audioExtensions = []string{".mp3", ".m4a", ".mp4", ".webm", ".wav", ".ogg", ".mpeg", ".mpga", ".flac"}

// WhisperConfig configures the transcription client.
type WhisperConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	AudioDir      string
	PassageTokens int
	Timeout       time.Duration
}

// WhisperTranscriber transcribes a video's audio track, stored as <AudioDir>/<videoID>.<ext>,
// through an OpenAI-compatible /audio/transcriptions endpoint.
type WhisperTranscriber struct {
	cfg       WhisperConfig
	extractor *Extractor
	client    *http.Client
	logger    *zap.Logger
}

// NewWhisperTranscriber creates a transcriber. Passage token counts use extractor's counter.
func NewWhisperTranscriber(cfg WhisperConfig, extractor *Extractor, logger *zap.Logger) *WhisperTranscriber {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.PassageTokens <= 0 {
		cfg.PassageTokens = 200
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if extractor == nil {
		extractor = NewExtractor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhisperTranscriber{
		cfg:       cfg,
		extractor: extractor,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

// AudioPath returns the audio file for videoID.
func (w *WhisperTranscriber) AudioPath(videoID string) (string, error) {
	if videoID == "" || strings.ContainsAny(videoID, `/\`) || strings.Contains(videoID, "..") {
		return "", fmt.Errorf("%w: invalid video id %q", models.ErrInvalidInput, videoID)
	}
	for _, ext := range audioExtensions {
		p := filepath.Join(w.cfg.AudioDir, videoID+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: no audio for video %q in %s", models.ErrInvalidInput, videoID, w.cfg.AudioDir)
}

type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type transcriptResponse struct {
	Text     string              `json:"text"`
	Segments []transcriptSegment `json:"segments"`
}

// Transcribe uploads the audio for videoID and returns the transcript grouped into passages
// of at most PassageTokens tokens (a single longer segment forms its own passage).
func (w *WhisperTranscriber) Transcribe(ctx context.Context, videoID string) ([]models.Passage, error) {
	path, err := w.AudioPath(videoID)
	if err != nil {
		return nil, err
	}
	w.logger.Info("Transcribing audio", zap.String("video_id", videoID), zap.String("path", path))

	resp, err := w.upload(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", videoID, err)
	}
	segments := resp.Segments
	if len(segments) == 0 && strings.TrimSpace(resp.Text) != "" {
		segments = []transcriptSegment{{Text: resp.Text}}
	}
	return w.group(segments), nil
}

func (w *WhisperTranscriber) upload(ctx context.Context, path string) (*transcriptResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}
	_ = mw.WriteField("model", w.cfg.Model)
	_ = mw.WriteField("response_format", "verbose_json")
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(w.cfg.BaseURL, "/")+"/audio/transcriptions", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if w.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)
	}
	res, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("transcription failed: %s: %s", res.Status, bytes.TrimSpace(msg))
	}
	var out transcriptResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode transcription: %w", err)
	}
	return &out, nil
}

// group merges consecutive segments until adding the next one would exceed PassageTokens.
func (w *WhisperTranscriber) group(segments []transcriptSegment) []models.Passage {
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })

	var (
		out    []models.Passage
		parts  []string
		tokens int
		start  float64
	)
	flush := func() {
		if len(parts) == 0 {
			return
		}
		out = append(out, models.Passage{
			ID:      fmt.Sprintf("seg-%d", len(out)+1),
			Text:    strings.Join(parts, " "),
			Tokens:  tokens,
			Locator: formatTimestamp(start),
		})
		parts, tokens = nil, 0
	}
	for _, s := range segments {
		text := utils.CollapseSpace(s.Text)
		if text == "" {
			continue
		}
		n := w.extractor.Count(text)
		if len(parts) > 0 && tokens+n > w.cfg.PassageTokens {
			flush()
		}
		if len(parts) == 0 {
			start = s.Start
		}
		parts = append(parts, text)
		tokens += n
	}
	flush()
	return out
}

func formatTimestamp(secs float64) string {
	d := time.Duration(secs * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
