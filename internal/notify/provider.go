package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/centauromax/prep-center-sub000/pkg/logging"
)

// Provider delivers one rendered message to a merchant contact
type Provider interface {
	Send(ctx context.Context, chatID, message string) (providerMessageID string, err error)
}

// LogProvider writes notifications to the log instead of delivering them.
// Used when no chat endpoint is configured (local development, tests).
type LogProvider struct {
	logger *logging.Logger
}

func NewLogProvider(logger *logging.Logger) *LogProvider {
	return &LogProvider{logger: logger.WithComponent("notify-log")}
}

func (p *LogProvider) Send(ctx context.Context, chatID, message string) (string, error) {
	p.logger.Info("Notification (log only)", "chatId", chatID, "message", message)
	return uuid.New().String(), nil
}

// WebhookProvider posts notifications to a chat relay endpoint
type WebhookProvider struct {
	endpoint   string
	httpClient *http.Client
}

func NewWebhookProvider(endpoint string, timeout time.Duration) *WebhookProvider {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &WebhookProvider{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *WebhookProvider) Send(ctx context.Context, chatID, message string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    message,
	})
	if err != nil {
		return "", err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := p.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("deliver notification: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		return "", fmt.Errorf("chat relay returned %d", response.StatusCode)
	}

	var reply struct {
		MessageID string `json:"message_id"`
	}
	if err := json.NewDecoder(response.Body).Decode(&reply); err != nil {
		// Some relays reply with an empty body; treat it as delivered.
		return uuid.New().String(), nil
	}
	if reply.MessageID == "" {
		reply.MessageID = uuid.New().String()
	}
	return reply.MessageID, nil
}
