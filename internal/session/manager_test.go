package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prepvoice/interview-gateway/internal/audio"
	"github.com/prepvoice/interview-gateway/internal/config"
)

type stubChat struct {
	responses []string
	calls     int
	err       error
}

func (s *stubChat) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	resp := s.responses[s.calls%len(s.responses)]
	s.calls++
	return resp, nil
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

func dialSession(t *testing.T, cfg *config.Config, chat *stubChat, speech *stubSpeech) (*websocket.Conn, func()) {
	t.Helper()

	server := httptest.NewServer(Handler(cfg, chat, speech))
	wsURL := strings.Replace(server.URL, "http", "ws", 1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to dial WebSocket: %v", err)
	}

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg ServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read server message: %v", err)
	}
	return msg
}

func TestSession_FullInterview(t *testing.T) {
	chat := &stubChat{responses: []string{
		"What draws you to this role?",
		"Good answer, well structured.",
		"Describe a recent technical challenge.",
		"Solid, but add more detail next time.",
	}}
	speech := &stubSpeech{pcm: []byte{0x01, 0x00, 0x02, 0x00}, rate: 24000}
	cfg := &config.Config{MaxQuestions: 2}

	conn, cleanup := dialSession(t, cfg, chat, speech)
	defer cleanup()

	if err := conn.WriteJSON(ClientMessage{Type: "start", Position: "backend engineer"}); err != nil {
		t.Fatalf("Failed to send start: %v", err)
	}

	// First question with audio
	msg := readMessage(t, conn)
	if msg.Type != "question" || msg.Index != 1 {
		t.Fatalf("Expected question 1, got %+v", msg)
	}
	if msg.Text != "What draws you to this role?" {
		t.Errorf("Unexpected question text: %q", msg.Text)
	}

	audioMsg := readMessage(t, conn)
	if audioMsg.Type != "audio" {
		t.Fatalf("Expected audio message, got %+v", audioMsg)
	}
	if audioMsg.SampleRate != 24000 {
		t.Errorf("Expected sample rate 24000, got %d", audioMsg.SampleRate)
	}
	wav, err := base64.StdEncoding.DecodeString(audioMsg.Audio)
	if err != nil {
		t.Fatalf("Audio payload is not valid base64: %v", err)
	}
	if len(wav) != 44+len(speech.pcm) {
		t.Errorf("Expected WAV length %d, got %d", 44+len(speech.pcm), len(wav))
	}
	if err := audio.ValidateWAV(wav); err != nil {
		t.Errorf("Audio payload is not a valid WAV container: %v", err)
	}

	// Answer the first question: feedback, feedback audio, then question 2
	if err := conn.WriteJSON(ClientMessage{Type: "answer", Text: "I enjoy distributed systems."}); err != nil {
		t.Fatalf("Failed to send answer: %v", err)
	}

	if msg = readMessage(t, conn); msg.Type != "feedback" || msg.Index != 1 {
		t.Fatalf("Expected feedback for question 1, got %+v", msg)
	}
	if msg = readMessage(t, conn); msg.Type != "audio" {
		t.Fatalf("Expected feedback audio, got %+v", msg)
	}
	if msg = readMessage(t, conn); msg.Type != "question" || msg.Index != 2 {
		t.Fatalf("Expected question 2, got %+v", msg)
	}
	if msg = readMessage(t, conn); msg.Type != "audio" {
		t.Fatalf("Expected question audio, got %+v", msg)
	}

	// Answer the final question: feedback, audio, then complete
	if err := conn.WriteJSON(ClientMessage{Type: "answer", Text: "Migrating our queue system."}); err != nil {
		t.Fatalf("Failed to send answer: %v", err)
	}

	if msg = readMessage(t, conn); msg.Type != "feedback" || msg.Index != 2 {
		t.Fatalf("Expected feedback for question 2, got %+v", msg)
	}
	if msg = readMessage(t, conn); msg.Type != "audio" {
		t.Fatalf("Expected feedback audio, got %+v", msg)
	}
	if msg = readMessage(t, conn); msg.Type != "complete" {
		t.Fatalf("Expected complete message, got %+v", msg)
	}
}

func TestSession_AnswerBeforeStart(t *testing.T) {
	chat := &stubChat{responses: []string{"unused"}}
	speech := &stubSpeech{pcm: []byte{0x00, 0x00}, rate: 24000}
	cfg := &config.Config{MaxQuestions: 2}

	conn, cleanup := dialSession(t, cfg, chat, speech)
	defer cleanup()

	if err := conn.WriteJSON(ClientMessage{Type: "answer", Text: "too early"}); err != nil {
		t.Fatalf("Failed to send answer: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != "error" {
		t.Fatalf("Expected error message, got %+v", msg)
	}
	if !strings.Contains(msg.Message, "not been started") {
		t.Errorf("Unexpected error detail: %q", msg.Message)
	}
}

func TestSession_SynthesisFailureIsNotFatal(t *testing.T) {
	chat := &stubChat{responses: []string{"What is your greatest strength?"}}
	speech := &stubSpeech{err: errors.New("tts unavailable")}
	cfg := &config.Config{MaxQuestions: 2}

	conn, cleanup := dialSession(t, cfg, chat, speech)
	defer cleanup()

	if err := conn.WriteJSON(ClientMessage{Type: "start"}); err != nil {
		t.Fatalf("Failed to send start: %v", err)
	}

	// The question still arrives even though synthesis failed
	msg := readMessage(t, conn)
	if msg.Type != "question" {
		t.Fatalf("Expected question message, got %+v", msg)
	}

	// No audio follows; the connection stays usable
	if err := conn.WriteJSON(ClientMessage{Type: "stop"}); err != nil {
		t.Fatalf("Failed to send stop: %v", err)
	}
}

func TestSession_DoubleStart(t *testing.T) {
	chat := &stubChat{responses: []string{"First question?"}}
	speech := &stubSpeech{pcm: []byte{0x00, 0x00}, rate: 24000}
	cfg := &config.Config{MaxQuestions: 5}

	conn, cleanup := dialSession(t, cfg, chat, speech)
	defer cleanup()

	conn.WriteJSON(ClientMessage{Type: "start"})
	readMessage(t, conn) // question
	readMessage(t, conn) // audio

	conn.WriteJSON(ClientMessage{Type: "start"})
	msg := readMessage(t, conn)
	if msg.Type != "error" {
		t.Fatalf("Expected error for double start, got %+v", msg)
	}
}

func TestSession_UnknownMessageType(t *testing.T) {
	chat := &stubChat{responses: []string{"unused"}}
	speech := &stubSpeech{pcm: []byte{0x00, 0x00}, rate: 24000}
	cfg := &config.Config{MaxQuestions: 2}

	conn, cleanup := dialSession(t, cfg, chat, speech)
	defer cleanup()

	if err := conn.WriteJSON(ClientMessage{Type: "bogus"}); err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}

	msg := readMessage(t, conn)
	if msg.Type != "error" {
		t.Fatalf("Expected error message, got %+v", msg)
	}
	if !strings.Contains(msg.Message, "bogus") {
		t.Errorf("Expected offending type in error, got %q", msg.Message)
	}
}

func TestSession_ChatFailureSendsError(t *testing.T) {
	chat := &stubChat{err: fmt.Errorf("model unavailable")}
	speech := &stubSpeech{pcm: []byte{0x00, 0x00}, rate: 24000}
	cfg := &config.Config{MaxQuestions: 2}

	conn, cleanup := dialSession(t, cfg, chat, speech)
	defer cleanup()

	conn.WriteJSON(ClientMessage{Type: "start"})

	msg := readMessage(t, conn)
	if msg.Type != "error" {
		t.Fatalf("Expected error message, got %+v", msg)
	}
}
