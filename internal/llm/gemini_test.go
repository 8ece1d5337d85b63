package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/genai"
)

type fakeGen struct {
	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig

	text string
	err  error
}

func (f *fakeGen) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(f.text, genai.RoleModel),
		}},
	}, nil
}

func TestGenerate_JSONWithImage(t *testing.T) {
	f := &fakeGen{text: ` {"food_name":"カレー"} `}
	g := newGemini(f, "gemini-2.5-flash", 0)

	out, err := g.Generate(context.Background(), Request{
		Prompt: "estimate",
		Image:  []byte{0xff, 0xd8},
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"food_name":"カレー"}` {
		t.Fatalf("out = %q", out)
	}
	if f.model != "gemini-2.5-flash" || g.Model() != "gemini-2.5-flash" {
		t.Fatalf("model = %q", f.model)
	}
	if f.config == nil || f.config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON response mode, got %+v", f.config)
	}
	if len(f.contents) != 1 || len(f.contents[0].Parts) != 2 {
		t.Fatalf("expected one content with prompt + image parts, got %+v", f.contents)
	}
	img := f.contents[0].Parts[1].InlineData
	if img == nil || img.MIMEType != "image/jpeg" || len(img.Data) != 2 {
		t.Fatalf("unexpected image part: %+v", img)
	}
}

func TestGenerate_TextMode(t *testing.T) {
	f := &fakeGen{text: "やば！🤤"}
	g := newGemini(f, "m", 0)
	out, err := g.Generate(context.Background(), Request{Prompt: "hi"})
	if err != nil || out != "やば！🤤" {
		t.Fatalf("got (%q, %v)", out, err)
	}
	if f.config != nil {
		t.Fatalf("text mode should not set a response config")
	}
	if len(f.contents[0].Parts) != 1 {
		t.Fatalf("expected prompt only")
	}
}

func TestGenerate_Errors(t *testing.T) {
	boom := errors.New("quota exceeded")
	g := newGemini(&fakeGen{err: boom}, "m", 0)
	if _, err := g.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	g = newGemini(&fakeGen{text: "   "}, "m", 0)
	if _, err := g.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestGenerate_RateLimited(t *testing.T) {
	f := &fakeGen{text: "ok"}
	g := newGemini(f, "m", 1) // one request per minute, burst 1

	if _, err := g.Generate(context.Background(), Request{Prompt: "a"}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Generate(ctx, Request{Prompt: "b"}); err == nil {
		t.Fatalf("expected limiter wait to fail under a short deadline")
	}
	if f.calls != 1 {
		t.Fatalf("limited call reached the model; calls=%d", f.calls)
	}
}

func TestUnavailable(t *testing.T) {
	want := errors.New("no api key")
	if _, err := (Unavailable{Err: want}).Generate(context.Background(), Request{}); !errors.Is(err, want) {
		t.Fatalf("got %v", err)
	}
}
