// Package notify forwards progress messages to a Telegram chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/speedrun-hq/zora-runner/pkg/logger"
	"github.com/speedrun-hq/zora-runner/pkg/metrics"
)

// DefaultEndpoint is the Telegram Bot API root
const DefaultEndpoint = "https://api.telegram.org"

// maxMessageLength is the Telegram limit for one message
const maxMessageLength = 4096

// Telegram sends messages to one chat through a bot. Stored lines are sent
// together on Flush. Delivery failures are logged and never returned to the
// run: Send, Flush and Close always succeed from the caller's point of view.
type Telegram struct {
	endpoint   string
	token      string
	chatID     string
	httpClient *http.Client
	logger     logger.Logger

	mu     sync.Mutex
	stored []string
}

// Option customizes a Telegram client
type Option func(*Telegram)

// WithEndpoint overrides the Bot API root
func WithEndpoint(endpoint string) Option {
	return func(t *Telegram) {
		t.endpoint = strings.TrimRight(endpoint, "/")
	}
}

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(t *Telegram) {
		t.httpClient = client
	}
}

// NewTelegram creates a client for the bot token and chat. With an empty token
// or chat every call is a no-op.
func NewTelegram(token, chatID string, log logger.Logger, opts ...Option) *Telegram {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	t := &Telegram{
		endpoint:   DefaultEndpoint,
		token:      token,
		chatID:     chatID,
		httpClient: createHTTPClient(),
		logger:     log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enabled reports whether messages are actually sent
func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

// Send delivers text right away
func (t *Telegram) Send(ctx context.Context, text string) {
	if !t.Enabled() || strings.TrimSpace(text) == "" {
		return
	}
	for _, chunk := range split(text, maxMessageLength) {
		if err := t.sendMessage(ctx, chunk); err != nil {
			metrics.NotificationErrors.Inc()
			t.logger.Debug("Failed to send telegram message: %v", err)
			return
		}
	}
}

// Store buffers a line for the next Flush
func (t *Telegram) Store(line string) {
	if !t.Enabled() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stored = append(t.stored, line)
}

// Flush sends the stored lines as one message and clears the buffer
func (t *Telegram) Flush(ctx context.Context) {
	t.mu.Lock()
	lines := t.stored
	t.stored = nil
	t.mu.Unlock()

	if len(lines) == 0 {
		return
	}
	t.Send(ctx, strings.Join(lines, "\n"))
}

// Close flushes what is left
func (t *Telegram) Close(ctx context.Context) {
	t.Flush(ctx)
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	_, err = t.call(ctx, http.MethodPost, "sendMessage", bytes.NewReader(body))
	return err
}

// ChatIDs returns the chats that recently wrote to the bot
func (t *Telegram) ChatIDs(ctx context.Context) ([]int64, error) {
	if t.token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	result, err := t.call(ctx, http.MethodGet, "getUpdates", nil)
	if err != nil {
		return nil, err
	}

	var updates []struct {
		Message *struct {
			Chat struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	}
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}

	seen := make(map[int64]bool)
	var ids []int64
	for _, update := range updates {
		if update.Message == nil || seen[update.Message.Chat.ID] {
			continue
		}
		seen[update.Message.Chat.ID] = true
		ids = append(ids, update.Message.Chat.ID)
	}
	return ids, nil
}

func (t *Telegram) call(ctx context.Context, httpMethod, method string, body io.Reader) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/bot%s/%s", t.endpoint, t.token, method)
	req, err := http.NewRequestWithContext(ctx, httpMethod, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// the URL holds the token, keep it out of logs
		return nil, fmt.Errorf("telegram %s request failed", method)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			t.logger.Debug("Failed to close response body: %v", err)
		}
	}(resp.Body)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}
	if resp.StatusCode != http.StatusOK || !apiResp.OK {
		return nil, fmt.Errorf("telegram %s failed: %d %s", method, resp.StatusCode, apiResp.Description)
	}
	return apiResp.Result, nil
}

// split cuts text into chunks of at most size bytes, on line boundaries when possible
func split(text string, size int) []string {
	var chunks []string
	for len(text) > size {
		cut := strings.LastIndex(text[:size], "\n")
		if cut <= 0 {
			cut = size
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	return append(chunks, text)
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
