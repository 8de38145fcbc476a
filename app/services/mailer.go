package services

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

	"github.com/propline/propline/config"
)

// MailRequest is one outbound message. Recipients go on BCC; To carries a
// neutral address so recipients never see each other.
type MailRequest struct {
	To      string
	BCC     []string
	Subject string
	HTML    string
}

// MailProvider delivers a single message through a transactional mail API
type MailProvider interface {
	Send(ctx context.Context, req *MailRequest) error
}

type httpMailProvider struct {
	cfg    config.MailConfig
	client *http.Client
}

// NewHTTPMailProvider creates a mail provider backed by a transactional HTTP API
func NewHTTPMailProvider(cfg config.MailConfig) MailProvider {
	return &httpMailProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Send posts one message to the provider. Non-2xx responses are returned as
// errors with the response body attached for diagnosis.
func (c *httpMailProvider) Send(ctx context.Context, req *MailRequest) error {
	if req == nil || len(req.BCC) == 0 {
		return fmt.Errorf("mail request has no recipients")
	}

	payload := map[string]any{
		"from": map[string]any{
			"email": c.cfg.FromAddress,
			"name":  c.cfg.FromName,
		},
		"to":      []map[string]any{{"email": req.To}},
		"bcc":     toAddressList(req.BCC),
		"subject": req.Subject,
		"html":    req.HTML,
	}

	b, _ := json.Marshal(payload)
	url := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/v1/email/send"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		body := strings.TrimSpace(string(bodyBytes))
		if readErr != nil {
			body = fmt.Sprintf("unable to read response body: %v", readErr)
		}
		return fmt.Errorf("mail provider http status: %d, body: %s", resp.StatusCode, body)
	}
	return nil
}

func toAddressList(emails []string) []map[string]any {
	out := make([]map[string]any, 0, len(emails))
	for _, e := range emails {
		out = append(out, map[string]any{"email": e})
	}
	return out
}

// MockMailProvider records sent requests for tests. FailBCC marks addresses
// whose chunk should fail.
type MockMailProvider struct {
	mu       sync.Mutex
	Requests []*MailRequest
	FailBCC  map[string]bool
	Err      error
}

func NewMockMailProvider() *MockMailProvider {
	return &MockMailProvider{FailBCC: make(map[string]bool)}
}

func (m *MockMailProvider) Send(ctx context.Context, req *MailRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return m.Err
	}
	for _, addr := range req.BCC {
		if m.FailBCC[addr] {
			return fmt.Errorf("mock provider rejected chunk containing %s", addr)
		}
	}
	return nil
}

// SentTotal returns the total number of BCC addresses across recorded requests
func (m *MockMailProvider) SentTotal() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, r := range m.Requests {
		total += len(r.BCC)
	}
	return total
}
