package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spherical/hs-classifier/internal/prompt"
)

// ProviderOpenRouter is the OpenRouter chat-completions generator.
const ProviderOpenRouter = "openrouter"

const (
	openRouterURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel = "google/gemini-2.5-flash"
	maxErrorBody           = 512
)

func init() {
	Register(ProviderOpenRouter, newOpenRouter)
}

// openRouterClient handles communication with the OpenRouter API.
type openRouterClient struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL string `json:"url"`
}

// Plugin enables an OpenRouter server-side feature such as web search.
type Plugin struct {
	ID string `json:"id"`
}

// ChatRequest represents the API request structure
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature"`
	Plugins     []Plugin  `json:"plugins,omitempty"`
	Stream      bool      `json:"stream"`
}

// ChatResponse represents the API response structure
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Choice represents a single completion choice
type Choice struct {
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChoiceMessage is the assistant reply with any web annotations.
type ChoiceMessage struct {
	Role        string       `json:"role"`
	Content     *string      `json:"content"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation carries a URL citation attached by the web plugin.
type Annotation struct {
	Type        string `json:"type"`
	URLCitation *struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"url_citation,omitempty"`
}

func newOpenRouter(opts Options) (Generator, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openrouter: API key is required")
	}
	model := opts.Model
	if model == "" {
		model = defaultOpenRouterModel
	}
	url := opts.BaseURL
	if url == "" {
		url = openRouterURL
	}
	return &openRouterClient{
		apiKey:     opts.APIKey,
		model:      model,
		url:        url,
		httpClient: opts.HTTPClient,
	}, nil
}

func (c *openRouterClient) Name() string { return ProviderOpenRouter }

func (c *openRouterClient) Generate(ctx context.Context, req *prompt.Request) (*Output, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://github.com/spherical/hs-classifier")
	httpReq.Header.Set("X-Title", "HS Code Classifier")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, msg)
	}

	var parsed ChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	out := &Output{Model: parsed.Model}
	if len(parsed.Choices) == 0 {
		return out, nil
	}
	msg := parsed.Choices[0].Message
	if msg.Content != nil {
		out.Text = *msg.Content
	}
	for _, a := range msg.Annotations {
		if a.Type == "url_citation" && a.URLCitation != nil && a.URLCitation.URL != "" {
			out.Citations = append(out.Citations, Citation{Title: a.URLCitation.Title, URI: a.URLCitation.URL})
		}
	}
	return out, nil
}

// buildRequest converts a compiled prompt into a chat-completions body.
func (c *openRouterClient) buildRequest(req *prompt.Request) *ChatRequest {
	var messages []Message
	if req.SystemInstruction != "" {
		messages = append(messages, Message{
			Role:    "system",
			Content: []ContentPart{{Type: "text", Text: req.SystemInstruction}},
		})
	}

	user := Message{Role: "user"}
	for _, p := range req.Parts {
		if p.Image != nil {
			user.Content = append(user.Content, ContentPart{
				Type:     "image_url",
				ImageURL: &ImageURL{URL: dataURI(p.Image)},
			})
			continue
		}
		user.Content = append(user.Content, ContentPart{Type: "text", Text: p.Text})
	}
	messages = append(messages, user)

	out := &ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.Tools.WebSearch {
		out.Plugins = []Plugin{{ID: "web"}}
	}
	return out
}

func dataURI(img *prompt.ImageData) string {
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(img.MIMEType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(img.Data))
	return b.String()
}
