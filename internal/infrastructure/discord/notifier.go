// Package discord posts finished articles to a channel webhook as embeds.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Discord embed limits.
const (
	maxTitle       = 256
	maxDescription = 4096
	maxFieldValue  = 1024
)

var palette = []int{0x1abc9c, 0x3498db, 0x9b59b6, 0xe67e22, 0xe74c3c, 0xf1c40f, 0x2ecc71}

// Notifier implements ports.Notifier for a Discord webhook.
type Notifier struct {
	webhookURL string
	username   string
	client     *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier targets webhookURL; username overrides the webhook's name when set.
func NewNotifier(webhookURL, username string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		username:   username,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// Notify posts one embed for the article.
func (n *Notifier) Notify(ctx context.Context, note domain.Notification) error {
	if n.webhookURL == "" || n.client == nil {
		return fmt.Errorf("discord notifier misconfigured")
	}

	body, err := json.Marshal(buildPayload(note, n.username, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("discord error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return nil
}

func buildPayload(note domain.Notification, username string, now time.Time) webhookPayload {
	e := embed{
		Title:       clip(note.Title, maxTitle),
		URL:         note.URL,
		Description: clip(note.Summary, maxDescription),
		Color:       categoryColor(note.Category),
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
	if len(note.Keywords) > 0 {
		e.Fields = append(e.Fields, embedField{
			Name:  "Keywords",
			Value: clip(strings.Join(note.Keywords, ", "), maxFieldValue),
		})
	}
	if note.Category != "" {
		e.Fields = append(e.Fields, embedField{Name: "Category", Value: clip(note.Category, maxFieldValue), Inline: true})
	}
	if note.FeedName != "" {
		e.Footer = &embedFooter{Text: note.FeedName}
	}
	return webhookPayload{Username: username, Embeds: []embed{e}}
}

// categoryColor keeps one stable colour per category.
func categoryColor(category string) int {
	if category == "" {
		return palette[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(category)))
	return palette[int(h.Sum32()%uint32(len(palette)))]
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
