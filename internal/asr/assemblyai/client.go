// Package assemblyai implements asr.Client against the AssemblyAI v2 API.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/voicebrief/voicebrief/internal/asr"
	"github.com/voicebrief/voicebrief/internal/config"
)

// Client submits a transcript request for the audio URL and polls until the
// provider reports completed or error. AssemblyAI fetches the audio itself,
// so the URL must be publicly reachable.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	pollTimeout  time.Duration
	client       *http.Client
}

func NewClient(cfg config.ASRConfig) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string { return "assemblyai" }

type transcriptResponse struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"` // queued, processing, completed, error
	Text          *string  `json:"text"`
	Confidence    *float64 `json:"confidence"`
	AudioDuration *float64 `json:"audio_duration"`
	Error         string   `json:"error"`
}

func (c *Client) Transcribe(ctx context.Context, audioURL string) (asr.Result, error) {
	id, err := c.submit(ctx, audioURL)
	if err != nil {
		return asr.Result{}, err
	}
	return c.poll(ctx, id)
}

func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"audio_url":          audioURL,
		"language_detection": true,
	})
	if err != nil {
		return "", fmt.Errorf("encode transcript request: %w", err)
	}

	var resp transcriptResponse
	if err := c.do(ctx, http.MethodPost, "/v2/transcript", body, &resp); err != nil {
		return "", err
	}
	if resp.Status == "error" {
		return "", fmt.Errorf("%w: %s", asr.ErrTranscription, resp.Error)
	}
	return resp.ID, nil
}

func (c *Client) poll(ctx context.Context, id string) (asr.Result, error) {
	deadline := time.Now().Add(c.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			return asr.Result{}, fmt.Errorf("%w: %v", asr.ErrTimeout, ctx.Err())
		case <-time.After(c.pollInterval):
		}

		if time.Now().After(deadline) {
			return asr.Result{}, asr.ErrTimeout
		}

		var resp transcriptResponse
		if err := c.do(ctx, http.MethodGet, "/v2/transcript/"+id, nil, &resp); err != nil {
			// Transient poll failures are retried until the deadline.
			var netErr net.Error
			if errors.As(err, &netErr) {
				continue
			}
			return asr.Result{}, err
		}

		switch resp.Status {
		case "completed":
			text := ""
			if resp.Text != nil {
				text = strings.TrimSpace(*resp.Text)
			}
			if text == "" {
				return asr.Result{}, asr.ErrNoSpeech
			}
			result := asr.Result{Text: text}
			if resp.Confidence != nil {
				result.Confidence = *resp.Confidence
			}
			if resp.AudioDuration != nil {
				result.DurationSeconds = *resp.AudioDuration
			}
			return result, nil
		case "error":
			return asr.Result{}, fmt.Errorf("%w: %s", asr.ErrTranscription, resp.Error)
		case "queued", "processing":
			continue
		default:
			return asr.Result{}, fmt.Errorf("%w: unexpected status %q", asr.ErrTranscription, resp.Status)
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out *transcriptResponse) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", asr.ErrTranscription, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", asr.ErrTranscription, apiErr.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding transcript response: %w", err)
	}
	return nil
}

var _ asr.Client = (*Client)(nil)
