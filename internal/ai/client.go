package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prepvoice/interview-gateway/internal/audio"
	"github.com/prepvoice/interview-gateway/internal/config"
	"github.com/prepvoice/interview-gateway/internal/observability"
	"github.com/prepvoice/interview-gateway/internal/resilience"
	"github.com/rs/zerolog"
)

// Client talks to the hosted generative AI service for both chat completions
// and speech synthesis. All outbound calls go through the circuit breaker and
// are retried with exponential backoff.
type Client struct {
	baseURL    string
	apiKey     string
	chatModel  string
	ttsModel   string
	ttsVoice   string
	sampleRate int

	httpClient  *http.Client
	retryPolicy resilience.Policy
	breaker     *resilience.CircuitBreaker
	logger      zerolog.Logger
}

// NewClient creates a new hosted AI client from configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.AIBaseURL, "/"),
		apiKey:     cfg.AIAPIKey,
		chatModel:  cfg.ChatModel,
		ttsModel:   cfg.TTSModel,
		ttsVoice:   cfg.TTSVoice,
		sampleRate: cfg.TTSSampleRate,
		httpClient: &http.Client{Timeout: cfg.AITimeoutDuration()},
		retryPolicy: resilience.Policy{
			MaxAttempts:  cfg.RetryMaxAttempts,
			InitialDelay: cfg.RetryInitialDelayDuration(),
			Multiplier:   2.0,
			MaxDelay:     cfg.RetryMaxDelayDuration(),
		},
		breaker: resilience.NewCircuitBreaker("hosted-ai",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second),
		logger: observability.GetLogger().With().Str("component", "ai").Logger(),
	}
}

// GenerateText asks the chat model for a completion
func (c *Client) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	req := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
	}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	start := time.Now()
	resp, err := c.generate(ctx, c.chatModel, req)
	if err != nil {
		observability.RecordChatRequest("error", start)
		return "", err
	}

	text, err := firstText(resp)
	if err != nil {
		observability.RecordChatRequest("error", start)
		return "", err
	}

	observability.RecordChatRequest("success", start)
	return text, nil
}

// GenerateSpeech synthesizes text into raw PCM audio. It returns the decoded
// 16-bit little-endian mono PCM bytes and their sample rate; wrapping the
// bytes in a playable container is the caller's step.
func (c *Client) GenerateSpeech(ctx context.Context, text string) ([]byte, int, error) {
	req := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: text}}},
		},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: c.ttsVoice},
				},
			},
		},
	}

	start := time.Now()
	resp, err := c.generate(ctx, c.ttsModel, req)
	if err != nil {
		observability.RecordTTSRequest("error", start)
		return nil, 0, err
	}

	data, err := firstInlineData(resp)
	if err != nil {
		observability.RecordTTSRequest("error", start)
		return nil, 0, err
	}

	pcm, err := audio.DecodeBase64PCM(data.Data)
	if err != nil {
		observability.RecordTTSRequest("error", start)
		return nil, 0, err
	}

	rate := rateFromMimeType(data.MimeType)
	if rate == 0 {
		rate = c.sampleRate
	}

	observability.RecordTTSRequest("success", start)
	observability.RecordTTSAudioBytes(len(pcm))

	c.logger.Debug().
		Int("pcm_bytes", len(pcm)).
		Int("sample_rate", rate).
		Msg("Speech synthesized")

	return pcm, rate, nil
}

// generate posts a generateContent request for the given model, with circuit
// breaker protection around the full retry sequence.
func (c *Client) generate(ctx context.Context, model string, req generateRequest) (*generateResponse, error) {
	var resp *generateResponse

	err := c.breaker.Call(func() error {
		var invokeErr error
		resp, invokeErr = resilience.Invoke(ctx, c.retryPolicy, func() (*generateResponse, error) {
			return c.postGenerate(ctx, model, req)
		})
		if invokeErr != nil {
			var exhausted *resilience.ExhaustedError
			if errors.As(invokeErr, &exhausted) {
				observability.RecordRetryExhausted(model)
			}
		}
		return invokeErr
	})
	observability.RecordCircuitBreakerState(c.breaker.Name(), int(c.breaker.State()))

	if err != nil {
		observability.RecordError("upstream", "ai")
		return nil, fmt.Errorf("generate request for model %s failed: %w", model, err)
	}
	return resp, nil
}

func (c *Client) postGenerate(ctx context.Context, model string, req generateRequest) (*generateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, fmt.Errorf("AI API returned status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var resp generateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &resp, nil
}

// HealthCheck validates the client configuration without spending API quota
func (c *Client) HealthCheck(ctx context.Context) (bool, error) {
	if c.apiKey == "" {
		return false, fmt.Errorf("missing API key")
	}
	if c.baseURL == "" {
		return false, fmt.Errorf("missing base URL")
	}
	return true, nil
}

// SampleRate returns the configured fallback PCM sample rate
func (c *Client) SampleRate() int {
	return c.sampleRate
}

func firstText(resp *generateResponse) (string, error) {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
	}
	return "", fmt.Errorf("response contains no text candidates")
}

func firstInlineData(resp *generateResponse) (*inlineData, error) {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return p.InlineData, nil
			}
		}
	}
	return nil, fmt.Errorf("response contains no audio data")
}

// rateFromMimeType extracts the sample rate from a mime type such as
// "audio/L16;codec=pcm;rate=24000". Returns 0 when absent.
func rateFromMimeType(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		param = strings.TrimSpace(param)
		if value, found := strings.CutPrefix(param, "rate="); found {
			rate, err := strconv.Atoi(value)
			if err == nil && rate > 0 {
				return rate
			}
		}
	}
	return 0
}
