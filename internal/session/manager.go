package session

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prepvoice/interview-gateway/internal/ai"
	"github.com/prepvoice/interview-gateway/internal/audio"
	"github.com/prepvoice/interview-gateway/internal/config"
	"github.com/prepvoice/interview-gateway/internal/interview"
	"github.com/prepvoice/interview-gateway/internal/observability"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The browser client is served from a different origin; origin
		// allowlisting is deferred to the deployment's ingress.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// ClientMessage is a message from the browser client
type ClientMessage struct {
	Type     string `json:"type"`               // "start", "answer", "stop"
	Position string `json:"position,omitempty"` // Position to interview for (start)
	Text     string `json:"text,omitempty"`     // Transcribed answer text (answer)
}

// ServerMessage is a message to the browser client
type ServerMessage struct {
	Type       string `json:"type"` // "question", "feedback", "audio", "complete", "error"
	Text       string `json:"text,omitempty"`
	Index      int    `json:"index,omitempty"`       // 1-based question number
	Audio      string `json:"audio,omitempty"`       // Base64 encoded WAV container
	SampleRate int    `json:"sample_rate,omitempty"` // Sample rate of the WAV audio
	Message    string `json:"message,omitempty"`     // Error detail
}

// Session holds the state of a single interview over one WebSocket
// connection. All interview state lives here; there is no process-wide
// session state.
type Session struct {
	id        string
	conn      *websocket.Conn
	engine    *interview.Engine
	chat      ai.ChatClient
	speech    ai.SpeechClient
	cfg       *config.Config
	logger    zerolog.Logger
	startTime time.Time

	writeMu sync.Mutex
}

// Handler returns the WebSocket handler for interview sessions
func Handler(cfg *config.Config, chat ai.ChatClient, speech ai.SpeechClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger := observability.GetLogger()
			logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
			return
		}

		s := newSession(conn, cfg, chat, speech)
		defer s.teardown()

		s.logger.Info().Msg("Interview session connected")
		s.run(r.Context())
	}
}

func newSession(conn *websocket.Conn, cfg *config.Config, chat ai.ChatClient, speech ai.SpeechClient) *Session {
	id := uuid.New().String()
	observability.RecordSessionStart()

	return &Session{
		id:        id,
		conn:      conn,
		chat:      chat,
		speech:    speech,
		cfg:       cfg,
		logger:    observability.WithSession(id),
		startTime: time.Now(),
	}
}

// run processes client messages until the connection closes or the
// interview ends
func (s *Session) run(ctx context.Context) {
	for {
		var msg ClientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		switch msg.Type {
		case "start":
			s.handleStart(ctx, msg)

		case "answer":
			if done := s.handleAnswer(ctx, msg); done {
				return
			}

		case "stop":
			s.logger.Info().Int("questions", s.questionCount()).Msg("Interview stopped by client")
			return

		default:
			s.sendError("unknown message type: " + msg.Type)
		}
	}
}

func (s *Session) handleStart(ctx context.Context, msg ClientMessage) {
	if s.engine != nil {
		s.sendError("interview already started")
		return
	}

	s.engine = interview.NewEngine(msg.Position, s.cfg.MaxQuestions)
	s.logger.Info().Str("position", s.engine.Position()).Msg("Interview started")

	s.askNextQuestion(ctx)
}

func (s *Session) handleAnswer(ctx context.Context, msg ClientMessage) bool {
	if s.engine == nil {
		s.sendError("interview has not been started")
		return false
	}
	if msg.Text == "" {
		s.sendError("answer text is empty")
		return false
	}

	if err := s.engine.RecordAnswer(msg.Text); err != nil {
		s.sendError(err.Error())
		return false
	}

	feedback, err := s.chat.GenerateText(ctx, s.engine.SystemPrompt(), s.engine.FeedbackPrompt(msg.Text))
	if err != nil {
		s.logger.Error().Err(err).Msg("Feedback generation failed")
		s.sendError("failed to generate feedback")
		return false
	}

	feedback = interview.CleanResponse(feedback)
	s.engine.RecordFeedback(feedback)
	s.send(ServerMessage{Type: "feedback", Text: feedback, Index: s.engine.QuestionCount()})
	s.synthesize(ctx, feedback)

	if s.engine.Complete() {
		s.logger.Info().Int("questions", s.engine.QuestionCount()).Msg("Interview complete")
		s.send(ServerMessage{Type: "complete", Index: s.engine.QuestionCount()})
		return true
	}

	s.askNextQuestion(ctx)
	return false
}

func (s *Session) askNextQuestion(ctx context.Context) {
	question, err := s.chat.GenerateText(ctx, s.engine.SystemPrompt(), s.engine.NextQuestionPrompt())
	if err != nil {
		s.logger.Error().Err(err).Msg("Question generation failed")
		s.sendError("failed to generate question")
		return
	}

	question = interview.CleanResponse(question)
	s.engine.RecordQuestion(question)
	s.send(ServerMessage{Type: "question", Text: question, Index: s.engine.QuestionCount()})
	s.synthesize(ctx, question)
}

// synthesize fetches TTS audio for text and sends it as a WAV container.
// Synthesis failure is not fatal: the client already has the text.
func (s *Session) synthesize(ctx context.Context, text string) {
	pcm, rate, err := s.speech.GenerateSpeech(ctx, text)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Speech synthesis failed, continuing without audio")
		return
	}

	wav, err := audio.EncodeWAV(pcm, rate)
	if err != nil {
		s.logger.Error().Err(err).Msg("WAV encoding failed")
		observability.RecordError("encode", "session")
		return
	}
	observability.RecordWAVContainer(len(wav))

	s.send(ServerMessage{
		Type:       "audio",
		Audio:      base64.StdEncoding.EncodeToString(wav),
		SampleRate: rate,
	})
}

func (s *Session) send(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message")
	}
}

func (s *Session) sendError(message string) {
	observability.RecordError("client", "session")
	s.send(ServerMessage{Type: "error", Message: message})
}

func (s *Session) questionCount() int {
	if s.engine == nil {
		return 0
	}
	return s.engine.QuestionCount()
}

func (s *Session) teardown() {
	s.conn.Close()
	observability.RecordSessionEnd(s.startTime)
	s.logger.Info().Dur("duration", time.Since(s.startTime)).Msg("Interview session closed")
}
