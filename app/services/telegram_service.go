// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ptichkin/brooder/config"
)

// TelegramService delivers messages through the Bot API
type TelegramService interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TelegramServiceImpl implements TelegramService
type TelegramServiceImpl struct {
	config *config.TelegramConfig
	client *http.Client
}

// telegramSendRequest is the sendMessage payload
type telegramSendRequest struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// telegramResponse is the Bot API envelope
type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// NewTelegramService creates a new Telegram service instance
func NewTelegramService(cfg *config.TelegramConfig) TelegramService {
	return &TelegramServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendMessage sends one text message, retrying on transient failures and
// honoring the Bot API's retry_after hint on 429.
func (t *TelegramServiceImpl) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := telegramSendRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.config.APIBaseURL, t.config.BotToken)

	var lastErr error
	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.config.RetryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create telegram request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("telegram request failed: %w", err)
			continue
		}

		var result telegramResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if decodeErr != nil {
			lastErr = fmt.Errorf("failed to decode telegram response: %w", decodeErr)
			continue
		}
		if result.OK {
			return nil
		}

		lastErr = fmt.Errorf("telegram API error %d: %s", result.ErrorCode, result.Description)
		if result.ErrorCode == http.StatusTooManyRequests && result.Parameters != nil {
			wait := time.Duration(result.Parameters.RetryAfter) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		// Client errors other than rate limiting never succeed on retry.
		if result.ErrorCode >= 400 && result.ErrorCode < 500 {
			return lastErr
		}
	}
	return lastErr
}

// MockTelegramService implements TelegramService for testing
type MockTelegramService struct {
	SentMessages []MockTelegramMessage
	FailWith     error
}

// MockTelegramMessage represents a captured message
type MockTelegramMessage struct {
	ChatID int64
	Text   string
	SentAt time.Time
}

// NewMockTelegramService creates a new mock Telegram service
func NewMockTelegramService() *MockTelegramService {
	return &MockTelegramService{
		SentMessages: make([]MockTelegramMessage, 0),
	}
}

// SendMessage records the message instead of sending it
func (m *MockTelegramService) SendMessage(ctx context.Context, chatID int64, text string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.SentMessages = append(m.SentMessages, MockTelegramMessage{
		ChatID: chatID,
		Text:   text,
		SentAt: time.Now(),
	})
	return nil
}
