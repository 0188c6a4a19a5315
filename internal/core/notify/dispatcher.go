package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"jobscout/internal/config"
	"jobscout/internal/logger"
)

// Receipt reports what happened to one notification.
type Receipt struct {
	Subject   string `json:"subject"`
	TotalJobs int    `json:"totalJobs"`
	Delivered bool   `json:"delivered"`
	Preview   string `json:"preview,omitempty"`
}

type webhookPayload struct {
	Type    string       `json:"type"`
	To      string       `json:"to"`
	Subject string       `json:"subject"`
	Text    string       `json:"text"`
	Data    Notification `json:"data"`
}

// Dispatcher hands digests to the delivery webhook.
type Dispatcher struct {
	webhookURL string
	secret     string
	preview    bool
	client     *http.Client
	log        *logger.Logger
	now        func() time.Time
}

// NewDispatcher delivers through cfg.NotifyWebhookURL in production.
// Otherwise, or without a webhook, digests are only logged.
func NewDispatcher(cfg config.Config) *Dispatcher {
	return &Dispatcher{
		webhookURL: cfg.NotifyWebhookURL,
		secret:     cfg.SystemAuthSecret,
		preview:    !cfg.IsProduction() || cfg.NotifyWebhookURL == "",
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        logger.New("Notifier"),
		now:        time.Now,
	}
}

// Send renders n and delivers it. Delivery failures are returned so the
// caller can decide whether the run should be retried.
func (d *Dispatcher) Send(ctx context.Context, n Notification) (Receipt, error) {
	digest := Render(n)
	receipt := Receipt{Subject: digest.Subject, TotalJobs: digest.TotalJobs}

	if d.preview {
		d.log.LogInfof("===== EMAIL PREVIEW =====\nTo: %s\nSubject: %s\n\n%s\n===== END EMAIL =====", n.Email, digest.Subject, digest.Text)
		receipt.Preview = digest.Text
		return receipt, nil
	}

	body, err := json.Marshal(webhookPayload{Type: "job_digest", To: n.Email, Subject: digest.Subject, Text: digest.Text, Data: n})
	if err != nil {
		return receipt, fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return receipt, fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "jobscout/1.0")
	req.Header.Set("X-Jobscout-Event", "digest.ready")
	if d.secret != "" {
		ts := strconv.FormatInt(d.now().Unix(), 10)
		req.Header.Set("X-System-Timestamp", ts)
		req.Header.Set("X-System-Signature", Sign(d.secret, ts, body))
	} else {
		d.log.LogWarnf("System auth secret not configured, webhook may fail authentication")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return receipt, fmt.Errorf("send notification to %s: %w", d.webhookURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return receipt, fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	d.log.LogInfof("Sent digest to %s (%d jobs)", n.Email, digest.TotalJobs)
	receipt.Delivered = true
	return receipt, nil
}

// Sign is hex(HMAC-SHA256(secret, timestamp + body)).
func Sign(secret, timestamp string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(timestamp))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
