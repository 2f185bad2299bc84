// Package webhook notifies an HTTP endpoint when a student's plan is ready.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/studyplan/auth"
)

// Config configures the webhook notifier.
type Config struct {
	URL       string    `json:"url"`
	TimeoutMS int       `json:"timeout_ms"`
	Auth      auth.Conf `json:"auth"`
}

// Enabled reports whether a target URL is configured.
func (c Config) Enabled() bool { return c.URL != "" }

func (c *Config) SetDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
}

func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	return c.Auth.Validate()
}

// Payload is the JSON body posted for each student.
type Payload struct {
	Event     string    `json:"event"`
	StudentID string    `json:"student_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier posts a Payload per successful student.
type Notifier struct {
	url    string
	client *http.Client
	creds  *auth.ClientCred
}

// NewNotifier returns a Notifier for cfg. When cfg.Auth is enabled every
// request carries a client-credentials bearer token.
func NewNotifier(cfg Config) (*Notifier, error) {
	if !cfg.Enabled() {
		return nil, errors.New("webhook: url is required")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := &Notifier{
		url:    cfg.URL,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
	}
	if cfg.Auth.Enabled() {
		n.creds = auth.NewClientCred(cfg.Auth)
	}
	return n, nil
}

// Notify posts the plan-ready event for studentID. A 401 answer triggers one
// retry with a refreshed token.
func (n *Notifier) Notify(ctx context.Context, studentID string) error {
	body, err := json.Marshal(Payload{Event: "plan_ready", StudentID: studentID, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	status, err := n.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && n.creds != nil {
		if _, err := n.creds.ForceRefresh(ctx); err != nil {
			return err
		}
		if status, err = n.post(ctx, body); err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("webhook %s: student %s: status %d", n.url, studentID, status)
	}
	return nil
}

func (n *Notifier) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.creds != nil {
		if err := n.creds.SetAuthHeader(req); err != nil {
			return 0, err
		}
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
