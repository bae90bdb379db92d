// internal/notifications/email.go - SendGrid mail channel
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"webmonitor/internal/config"
)

const UserAgent = "webmonitor/1.0"

// EmailMessage is a fully addressed email.
type EmailMessage struct {
	To      string
	From    string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email. Send reports true only when the provider accepted
// the message; missing credentials yield false.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) bool
}

type SendGridMailer struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPayload struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

func NewSendGridMailer(cfg *config.EmailConfig, httpClient *http.Client) *SendGridMailer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &SendGridMailer{
		apiKey:     cfg.APIKey,
		apiURL:     cfg.APIURL,
		httpClient: httpClient,
	}
}

func (m *SendGridMailer) Configured() bool {
	return m.apiKey != ""
}

func (m *SendGridMailer) Send(ctx context.Context, msg EmailMessage) bool {
	if !m.Configured() {
		logrus.Warn("SendGrid API key not configured - email not sent")
		return false
	}
	if msg.To == "" || msg.From == "" {
		logrus.WithFields(logrus.Fields{
			"to":   msg.To,
			"from": msg.From,
		}).Warn("Email recipient or sender missing - email not sent")
		return false
	}

	if err := m.post(ctx, msg); err != nil {
		logrus.WithError(err).WithField("to", msg.To).Error("SendGrid email error")
		return false
	}

	logrus.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email notification sent")
	return true
}

func (m *SendGridMailer) post(ctx context.Context, msg EmailMessage) error {
	payload := sendGridPayload{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: msg.To}}}},
		From:             sendGridAddress{Email: msg.From},
		Subject:          msg.Subject,
	}
	if msg.Text != "" {
		payload.Content = append(payload.Content, sendGridContent{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		payload.Content = append(payload.Content, sendGridContent{Type: "text/html", Value: msg.HTML})
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sendgrid API error: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
