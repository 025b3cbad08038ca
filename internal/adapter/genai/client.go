// Package genai wraps the external conversational text service.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/medassist/orchestrator/internal/domain"
)

// User-safe fallback replies. The client never surfaces transport or parse
// errors to the orchestrator; the fallback string is the reply.
const (
	fallbackNoReply  = "Sorry, no reply from the assistant."
	fallbackUpstream = "Error from the chat system. Please try again."
	fallbackConnect  = "Cannot connect to the system. Please check your network or try again."
)

// Client is the conversational text service client. The remote service is
// stateless; all conversational memory lives in the session's turn log.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Converse sends the user utterance with the session's full turn log as
// context and returns the model reply. On the first turn the fixed system
// instruction is prepended. Both the outgoing user turn and the reply (or
// fallback) are appended to the turn log before returning.
func (c *Client) Converse(ctx context.Context, sess *domain.Session, userMessage string) string {
	if len(sess.Turns) == 0 {
		sess.AddUserTurn(fmt.Sprintf(systemPrompt, userMessage))
	} else {
		sess.AddUserTurn(userMessage)
	}

	reply := c.generate(ctx, sess.Turns)
	sess.AddModelTurn(reply)
	return reply
}

func (c *Client) generate(ctx context.Context, turns []domain.Turn) string {
	contents := make([]content, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, content{Role: t.Role, Parts: []part{{Text: t.Text}}})
	}

	body, err := json.Marshal(generateRequest{Contents: contents})
	if err != nil {
		log.Printf("genai: failed to marshal request: %v", err)
		return fallbackUpstream
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("genai: failed to create request: %v", err)
		return fallbackUpstream
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("genai: request failed: %v", err)
		return fallbackConnect
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("genai: failed to read response: %v", err)
		return fallbackUpstream
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("genai: upstream status %d: %s", resp.StatusCode, respBody)
		return fallbackUpstream
	}

	var gen generateResponse
	if err := json.Unmarshal(respBody, &gen); err != nil {
		log.Printf("genai: failed to decode response: %v", err)
		return fallbackUpstream
	}
	if len(gen.Candidates) == 0 || len(gen.Candidates[0].Content.Parts) == 0 {
		return fallbackNoReply
	}
	return gen.Candidates[0].Content.Parts[0].Text
}
