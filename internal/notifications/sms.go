// internal/notifications/sms.go - Twilio SMS channel
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"webmonitor/internal/config"
)

// SMSSender delivers a text message. Same contract as Mailer: false on any
// failure, including missing credentials.
type SMSSender interface {
	Send(ctx context.Context, to, body string) bool
}

type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	apiURL     string
	httpClient *http.Client
}

type twilioResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func NewTwilioSender(cfg *config.SMSConfig, httpClient *http.Client) *TwilioSender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TwilioSender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromNumber: cfg.FromNumber,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		httpClient: httpClient,
	}
}

func (t *TwilioSender) Configured() bool {
	return t.accountSID != "" && t.authToken != "" && t.fromNumber != ""
}

func (t *TwilioSender) Send(ctx context.Context, to, body string) bool {
	if t.accountSID == "" || t.authToken == "" {
		logrus.Warn("Twilio client not configured - SMS not sent")
		return false
	}
	if t.fromNumber == "" {
		logrus.Warn("Twilio phone number not configured - SMS not sent")
		return false
	}
	if to == "" {
		logrus.Warn("SMS destination missing - SMS not sent")
		return false
	}

	sid, err := t.post(ctx, to, body)
	if err != nil {
		logrus.WithError(err).WithField("to", to).Error("Failed to send SMS")
		return false
	}

	logrus.WithFields(logrus.Fields{
		"to":  to,
		"sid": sid,
	}).Info("SMS sent successfully")
	return true
}

func (t *TwilioSender) post(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.fromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.apiURL, url.PathEscape(t.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var twilioResp twilioResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&twilioResp); err != nil {
		return "", fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("twilio API error %d: %s", twilioResp.Code, twilioResp.Message)
	}
	return twilioResp.SID, nil
}
