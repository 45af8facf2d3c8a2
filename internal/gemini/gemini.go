package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stupiduntilnot/omnichat/internal/chat"
	"github.com/stupiduntilnot/omnichat/internal/model"
)

// DefaultBaseURL is the Gemini API base.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

// Client is a minimal Gemini generateContent client.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a Gemini client with an explicit request timeout.
func NewClient(apiKey, baseURL, modelName string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   modelName,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type wirePart struct {
	Text string `json:"text"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *wireContent  `json:"systemInstruction,omitempty"`
	Contents          []wireContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content wireContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

// ChatCompletion sends one generateContent request and returns the reply.
// System messages become the systemInstruction; assistant turns map to the
// "model" role on the wire.
func (c *Client) ChatCompletion(messages []chat.Message) (model.CompletionResponse, error) {
	reqBody := generateRequest{}
	for _, m := range messages {
		switch m.Role {
		case chat.RoleSystem:
			reqBody.SystemInstruction = &wireContent{Parts: []wirePart{{Text: m.Content}}}
		case chat.RoleAssistant:
			reqBody.Contents = append(reqBody.Contents, wireContent{
				Role:  "model",
				Parts: []wirePart{{Text: m.Content}},
			})
		default:
			reqBody.Contents = append(reqBody.Contents, wireContent{
				Role:  "user",
				Parts: []wirePart{{Text: m.Content}},
			})
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return model.CompletionResponse{}, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return model.CompletionResponse{}, fmt.Errorf("failed to create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.CompletionResponse{}, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.CompletionResponse{}, fmt.Errorf("failed reading gemini response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		truncated := truncate(string(body), 400)
		return model.CompletionResponse{}, fmt.Errorf("gemini non-success status=%d body=%s", resp.StatusCode, truncated)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		truncated := truncate(string(body), 400)
		return model.CompletionResponse{}, fmt.Errorf("failed to parse gemini response: %s", truncated)
	}

	result := model.CompletionResponse{}
	if parsed.UsageMetadata != nil {
		result.InputTokens = parsed.UsageMetadata.PromptTokenCount
		result.OutputTokens = parsed.UsageMetadata.CandidatesTokenCount
	}

	if len(parsed.Candidates) == 0 {
		return result, fmt.Errorf("gemini response contained no candidates")
	}
	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	result.Content = strings.TrimSpace(text.String())
	return result, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
