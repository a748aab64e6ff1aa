package api

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prepvoice/interview-gateway/internal/audio"
	"github.com/prepvoice/interview-gateway/internal/config"
)

type stubChat struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubChat) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type stubSpeech struct {
	pcm  []byte
	rate int
	err  error
}

func (s *stubSpeech) GenerateSpeech(ctx context.Context, text string) ([]byte, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.pcm, s.rate, nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestQuestionHandler(t *testing.T) {
	chat := &stubChat{response: "What is your experience with Go?"}
	cfg := &config.Config{MaxQuestions: 10}

	rec := postJSON(t, QuestionHandler(cfg, chat), QuestionRequest{
		Position:   "backend engineer",
		Asked:      []string{"Tell me about yourself."},
		LastAnswer: "I have five years of experience.",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp QuestionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Question != "What is your experience with Go?" {
		t.Errorf("Unexpected question: %q", resp.Question)
	}

	if !strings.Contains(chat.lastPrompt, "Tell me about yourself.") {
		t.Error("Expected asked questions in the prompt")
	}
	if !strings.Contains(chat.lastPrompt, "I have five years of experience.") {
		t.Error("Expected last answer in the prompt")
	}
}

func TestQuestionHandler_UpstreamFailure(t *testing.T) {
	chat := &stubChat{err: errors.New("model down")}
	cfg := &config.Config{MaxQuestions: 10}

	rec := postJSON(t, QuestionHandler(cfg, chat), QuestionRequest{Position: "engineer"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", rec.Code)
	}
}

func TestQuestionHandler_MethodNotAllowed(t *testing.T) {
	cfg := &config.Config{MaxQuestions: 10}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	QuestionHandler(cfg, &stubChat{})(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}

func TestQuestionHandler_InvalidBody(t *testing.T) {
	cfg := &config.Config{MaxQuestions: 10}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	QuestionHandler(cfg, &stubChat{})(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestFeedbackHandler(t *testing.T) {
	chat := &stubChat{response: "Clear and well structured."}
	cfg := &config.Config{MaxQuestions: 10}

	rec := postJSON(t, FeedbackHandler(cfg, chat), FeedbackRequest{
		Position: "engineer",
		Question: "Describe a hard bug.",
		Answer:   "A deadlock in the scheduler.",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp FeedbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Feedback != "Clear and well structured." {
		t.Errorf("Unexpected feedback: %q", resp.Feedback)
	}

	if !strings.Contains(chat.lastPrompt, "Describe a hard bug.") {
		t.Error("Expected question in the prompt")
	}
	if !strings.Contains(chat.lastPrompt, "A deadlock in the scheduler.") {
		t.Error("Expected answer in the prompt")
	}
}

func TestFeedbackHandler_MissingFields(t *testing.T) {
	cfg := &config.Config{MaxQuestions: 10}

	rec := postJSON(t, FeedbackHandler(cfg, &stubChat{}), FeedbackRequest{Position: "engineer"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestSpeechHandler(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xFF, 0xFF}
	speech := &stubSpeech{pcm: pcm, rate: 16000}

	rec := postJSON(t, SpeechHandler(speech), SpeechRequest{Text: "Hello candidate"})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/wav" {
		t.Errorf("Expected Content-Type audio/wav, got %q", ct)
	}

	wav := rec.Body.Bytes()
	if len(wav) != 44+len(pcm) {
		t.Errorf("Expected WAV length %d, got %d", 44+len(pcm), len(wav))
	}
	if err := audio.ValidateWAV(wav); err != nil {
		t.Errorf("Response is not a valid WAV container: %v", err)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 16000 {
		t.Errorf("Expected sample rate 16000 in header, got %d", got)
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Error("Expected PCM payload verbatim at offset 44")
	}
}

func TestSpeechHandler_EmptyText(t *testing.T) {
	rec := postJSON(t, SpeechHandler(&stubSpeech{}), SpeechRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestSpeechHandler_UpstreamFailure(t *testing.T) {
	speech := &stubSpeech{err: errors.New("tts down")}

	rec := postJSON(t, SpeechHandler(speech), SpeechRequest{Text: "Hello"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", rec.Code)
	}
}

func TestSpeechHandler_OddPCMFromUpstream(t *testing.T) {
	speech := &stubSpeech{pcm: []byte{0x01, 0x02, 0x03}, rate: 16000}

	rec := postJSON(t, SpeechHandler(speech), SpeechRequest{Text: "Hello"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500 for odd-length PCM, got %d", rec.Code)
	}
}
