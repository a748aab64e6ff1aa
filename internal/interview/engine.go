package interview

import (
	"fmt"
	"strings"
)

// Turn is a single question/answer/feedback exchange
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Feedback string `json:"feedback,omitempty"`
}

// Engine builds interviewer prompts and tracks the progress of one mock
// interview. It is owned by a single session and is not safe for concurrent
// use.
type Engine struct {
	position     string
	maxQuestions int
	turns        []Turn
}

// NewEngine creates an interview engine for the given position
func NewEngine(position string, maxQuestions int) *Engine {
	if position == "" {
		position = "software engineer"
	}
	if maxQuestions < 1 {
		maxQuestions = 10
	}
	return &Engine{
		position:     position,
		maxQuestions: maxQuestions,
	}
}

// SystemPrompt returns the system instruction for the chat model
func (e *Engine) SystemPrompt() string {
	return fmt.Sprintf(
		"You are a professional interviewer conducting a mock interview for a %s position. "+
			"Ask one question at a time. Keep questions concise and conversational, "+
			"as they will be read aloud to the candidate. Do not number the questions "+
			"and do not use markdown formatting.",
		e.position)
}

// NextQuestionPrompt returns the prompt that asks the model for the next
// interview question, including prior questions so the model avoids repeats
func (e *Engine) NextQuestionPrompt() string {
	var sb strings.Builder

	if len(e.turns) == 0 {
		sb.WriteString("Start the interview with a brief greeting followed by the first question.")
		return sb.String()
	}

	sb.WriteString("Questions already asked:\n")
	for _, turn := range e.turns {
		sb.WriteString("- ")
		sb.WriteString(turn.Question)
		sb.WriteString("\n")
	}
	if last := e.turns[len(e.turns)-1]; last.Answer != "" {
		sb.WriteString("\nThe candidate's last answer was:\n")
		sb.WriteString(last.Answer)
		sb.WriteString("\n")
	}
	sb.WriteString("\nAsk the next question. Do not repeat a previous question.")

	return sb.String()
}

// FeedbackPrompt returns the prompt that asks the model to evaluate the
// candidate's answer to the current question
func (e *Engine) FeedbackPrompt(answer string) string {
	question := ""
	if len(e.turns) > 0 {
		question = e.turns[len(e.turns)-1].Question
	}

	return fmt.Sprintf(
		"The candidate was asked: %q\n\nThe candidate answered: %q\n\n"+
			"Give two or three sentences of constructive feedback on this answer. "+
			"Be specific and encouraging. Do not ask a follow-up question.",
		question, answer)
}

// RecordQuestion appends a new turn for the given question
func (e *Engine) RecordQuestion(question string) {
	e.turns = append(e.turns, Turn{Question: question})
}

// RecordAnswer stores the candidate's answer on the current turn
func (e *Engine) RecordAnswer(answer string) error {
	if len(e.turns) == 0 {
		return fmt.Errorf("no question has been asked yet")
	}
	e.turns[len(e.turns)-1].Answer = answer
	return nil
}

// RecordFeedback stores the model's feedback on the current turn
func (e *Engine) RecordFeedback(feedback string) error {
	if len(e.turns) == 0 {
		return fmt.Errorf("no question has been asked yet")
	}
	e.turns[len(e.turns)-1].Feedback = feedback
	return nil
}

// Complete reports whether the interview has reached its question limit
func (e *Engine) Complete() bool {
	return len(e.turns) >= e.maxQuestions
}

// QuestionCount returns the number of questions asked so far
func (e *Engine) QuestionCount() int {
	return len(e.turns)
}

// Position returns the position being interviewed for
func (e *Engine) Position() string {
	return e.position
}

// Turns returns a copy of the interview transcript
func (e *Engine) Turns() []Turn {
	out := make([]Turn, len(e.turns))
	copy(out, e.turns)
	return out
}

// CleanResponse normalizes model output for speech: trims whitespace and
// strips markdown code fences the model sometimes wraps answers in
func CleanResponse(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.Index(text, "\n"); idx >= 0 && !strings.Contains(text[:idx], " ") {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
