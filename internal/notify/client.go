// Package notify delivers the daily attendance report to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tutorregister/internal/attendance"
)

// Client posts reports as JSON to a webhook URL.
type Client struct {
	URL  string
	HTTP *http.Client
}

// New creates a client with a short timeout.
func New(url string) *Client {
	return &Client{
		URL:  url,
		HTTP: &http.Client{Timeout: 10 * time.Second},
	}
}

type reportPayload struct {
	Date        string    `json:"date"`
	Label       string    `json:"label"`
	RosterSize  int       `json:"roster_size"`
	PresentN    int       `json:"present_count"`
	Present     []string  `json:"present"`
	CurrentlyIn []string  `json:"currently_in"`
	GeneratedAt time.Time `json:"generated_at"`
}

func payload(r attendance.Report) reportPayload {
	p := reportPayload{
		Date:        r.DateISO,
		Label:       r.Label,
		RosterSize:  r.RosterSize,
		PresentN:    len(r.Present),
		Present:     make([]string, 0, len(r.Present)),
		CurrentlyIn: make([]string, 0, len(r.CurrentlyIn)),
		GeneratedAt: r.GeneratedAt,
	}
	for _, l := range r.Present {
		p.Present = append(p.Present, l.FullName())
	}
	for _, l := range r.CurrentlyIn {
		p.CurrentlyIn = append(p.CurrentlyIn, l.FullName())
	}
	return p
}

// Send posts the report. Any non-2xx response is an error.
func (c *Client) Send(ctx context.Context, r attendance.Report) error {
	if c.URL == "" {
		return fmt.Errorf("report webhook not configured")
	}
	body, err := json.Marshal(payload(r))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("report webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("report webhook error %s: %s", resp.Status, string(msg))
	}
	return nil
}
