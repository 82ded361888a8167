package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramSender delivers messages via the Telegram Bot API.
type TelegramSender struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
}

// TelegramOption configures the sender.
type TelegramOption func(*TelegramSender)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) TelegramOption {
	return func(s *TelegramSender) {
		if client != nil {
			s.client = client
		}
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(url string) TelegramOption {
	return func(s *TelegramSender) {
		if url != "" {
			s.baseURL = url
		}
	}
}

// NewTelegramSender constructs a Telegram sender.
func NewTelegramSender(botToken, chatID string, opts ...TelegramOption) (*TelegramSender, error) {
	if botToken == "" || chatID == "" {
		return nil, errors.New("telegram sender: bot token and chat id required")
	}
	s := &TelegramSender{
		baseURL:  telegramAPIBase,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type telegramPayload struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	ParseMode           string `json:"parse_mode"`
	DisableNotification bool   `json:"disable_notification"`
}

// Send posts a sendMessage request. Any non-2xx response is an error; the
// caller decides what a failed delivery means for gating state.
func (s *TelegramSender) Send(ctx context.Context, msg Message) error {
	payload := telegramPayload{
		ChatID:              s.chatID,
		Text:                msg.Text,
		ParseMode:           "HTML",
		DisableNotification: msg.Silent,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: encode payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}
	return nil
}
