// Package llm wraps the hosted Gemini model behind a small request/response
// surface. Callers build a Request (prompt, optional image, response mode) and
// get back the model's raw text.
//
// A process-wide token bucket keeps the bot inside the model's per-minute
// quota; callers block on it under their own context.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Request is one generation call.
type Request struct {
	Prompt    string
	Image     []byte
	ImageMIME string
	// JSON asks the model for a JSON-only response.
	JSON bool
}

// generator is the slice of the genai client used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates text with one configured model.
type Gemini struct {
	gen     generator
	model   string
	limiter *rate.Limiter
}

// NewGemini builds a client for the Gemini API. rpm <= 0 disables limiting.
func NewGemini(ctx context.Context, apiKey, model string, rpm int) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return newGemini(client.Models, model, rpm), nil
}

func newGemini(gen generator, model string, rpm int) *Gemini {
	g := &Gemini{gen: gen, model: model}
	if rpm > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
	return g
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }

// Generate sends req and returns the concatenated response text.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(req.Image, mime))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var cfg *genai.GenerateContentConfig
	if req.JSON {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	resp, err := g.gen.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Unavailable is a generator stand-in used when the client could not be
// built at startup (e.g. missing API key). Every call fails with err.
type Unavailable struct {
	Err error
}

// Generate always returns u.Err.
func (u Unavailable) Generate(context.Context, Request) (string, error) {
	return "", u.Err
}
