package ai

import "context"

// ChatClient generates interviewer text from a prompt
type ChatClient interface {
	// GenerateText returns the model's text completion for the given prompt
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// SpeechClient synthesizes speech from text
type SpeechClient interface {
	// GenerateSpeech returns raw 16-bit little-endian mono PCM bytes and
	// their sample rate
	GenerateSpeech(ctx context.Context, text string) ([]byte, int, error)
}

// Request and response shapes for the hosted generateContent API

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // Base64 encoded audio
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}
