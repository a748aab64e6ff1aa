package api

import (
	"encoding/json"
	"net/http"

	"github.com/prepvoice/interview-gateway/internal/ai"
	"github.com/prepvoice/interview-gateway/internal/audio"
	"github.com/prepvoice/interview-gateway/internal/config"
	"github.com/prepvoice/interview-gateway/internal/interview"
	"github.com/prepvoice/interview-gateway/internal/observability"
)

// QuestionRequest asks for the next interview question
type QuestionRequest struct {
	Position   string   `json:"position"`
	Asked      []string `json:"asked,omitempty"`       // Questions already asked
	LastAnswer string   `json:"last_answer,omitempty"` // Candidate's most recent answer
}

// QuestionResponse carries the generated question
type QuestionResponse struct {
	Question string `json:"question"`
}

// FeedbackRequest asks for feedback on a candidate's answer
type FeedbackRequest struct {
	Position string `json:"position"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FeedbackResponse carries the generated feedback
type FeedbackResponse struct {
	Feedback string `json:"feedback"`
}

// SpeechRequest asks for synthesized speech
type SpeechRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// QuestionHandler generates the next interview question for a stateless
// client. Clients that want server-held state use the WebSocket session
// instead.
func QuestionHandler(cfg *config.Config, chat ai.ChatClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req QuestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		engine := interview.NewEngine(req.Position, cfg.MaxQuestions)
		for _, q := range req.Asked {
			engine.RecordQuestion(q)
		}
		if req.LastAnswer != "" && len(req.Asked) > 0 {
			engine.RecordAnswer(req.LastAnswer)
		}

		question, err := chat.GenerateText(r.Context(), engine.SystemPrompt(), engine.NextQuestionPrompt())
		if err != nil {
			observability.RecordError("upstream", "api")
			writeError(w, http.StatusBadGateway, "failed to generate question")
			return
		}

		writeJSON(w, http.StatusOK, QuestionResponse{Question: interview.CleanResponse(question)})
	}
}

// FeedbackHandler generates feedback on a candidate's answer
func FeedbackHandler(cfg *config.Config, chat ai.ChatClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Question == "" || req.Answer == "" {
			writeError(w, http.StatusBadRequest, "question and answer are required")
			return
		}

		engine := interview.NewEngine(req.Position, cfg.MaxQuestions)
		engine.RecordQuestion(req.Question)

		feedback, err := chat.GenerateText(r.Context(), engine.SystemPrompt(), engine.FeedbackPrompt(req.Answer))
		if err != nil {
			observability.RecordError("upstream", "api")
			writeError(w, http.StatusBadGateway, "failed to generate feedback")
			return
		}

		writeJSON(w, http.StatusOK, FeedbackResponse{Feedback: interview.CleanResponse(feedback)})
	}
}

// SpeechHandler synthesizes text and responds with a playable WAV body
func SpeechHandler(speech ai.SpeechClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req SpeechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Text == "" {
			writeError(w, http.StatusBadRequest, "text is required")
			return
		}

		pcm, rate, err := speech.GenerateSpeech(r.Context(), req.Text)
		if err != nil {
			observability.RecordError("upstream", "api")
			writeError(w, http.StatusBadGateway, "failed to synthesize speech")
			return
		}

		wav, err := audio.EncodeWAV(pcm, rate)
		if err != nil {
			observability.RecordError("encode", "api")
			writeError(w, http.StatusInternalServerError, "failed to encode audio")
			return
		}
		observability.RecordWAVContainer(len(wav))

		w.Header().Set("Content-Type", "audio/wav")
		w.WriteHeader(http.StatusOK)
		w.Write(wav)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
