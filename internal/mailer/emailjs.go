// Package mailer relays Submission Records through the EmailJS REST API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Katlearn/cablevision-form/internal/models"
)

const DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// Config identifies the EmailJS service, template and account.
type Config struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
	Timeout    time.Duration
}

type EmailJS struct {
	cfg  Config
	http *http.Client
}

func NewEmailJS(cfg Config) *EmailJS {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &EmailJS{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type sendRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	AccessToken    string         `json:"accessToken,omitempty"`
	TemplateParams map[string]any `json:"template_params"`
}

// Send delivers rec. Values go out exactly as the customer typed them; the
// mail template escapes on output. Any non-2xx answer is an error carrying
// the response text.
func (m *EmailJS) Send(ctx context.Context, rec models.Record) error {
	payload, err := json.Marshal(sendRequest{
		ServiceID:      m.cfg.ServiceID,
		TemplateID:     m.cfg.TemplateID,
		UserID:         m.cfg.PublicKey,
		AccessToken:    m.cfg.PrivateKey,
		TemplateParams: rec.Params(),
	})
	if err != nil {
		return fmt.Errorf("emailjs: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("emailjs: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("emailjs: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
