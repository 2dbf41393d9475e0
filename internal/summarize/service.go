// Package summarize builds model prompts for an article and parses the reply.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"NewsDigest/internal/aiparse"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Options are the per-call model settings.
type Options struct {
	Model           string
	Temperature     float32
	MaxTokens       int
	MaxContentRunes int
}

// Service implements ports.Summarizer on top of any Completer.
type Service struct {
	completer ports.Completer
	opts      Options
	logger    *slog.Logger
}

var _ ports.Summarizer = (*Service)(nil)

// NewService wires the completer; zero options fall back to defaults.
func NewService(completer ports.Completer, opts Options, logger *slog.Logger) *Service {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	if opts.MaxContentRunes <= 0 {
		opts.MaxContentRunes = 6000
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{completer: completer, opts: opts, logger: logger}
}

// Summarize asks the model for a tagged summary and parses whatever comes back.
// Only a failed model call is an error.
func (s *Service) Summarize(ctx context.Context, content, title string, lang domain.Language) (domain.SummaryResult, error) {
	raw, err := s.completer.Complete(ctx, ports.CompletionRequest{
		Model:        s.opts.Model,
		SystemPrompt: systemPrompt(lang),
		UserPrompt:   userPrompt(truncate(content, s.opts.MaxContentRunes), title, lang),
		Temperature:  s.opts.Temperature,
		MaxTokens:    s.opts.MaxTokens,
	})
	if err != nil {
		return domain.SummaryResult{}, fmt.Errorf("complete summary: %w", err)
	}

	result := aiparse.Parse(raw, title, lang)
	s.logger.Debug("summary parsed", "title", title, "raw_len", len(raw), "keywords", len(result.Keywords))
	return result, nil
}

func systemPrompt(lang domain.Language) string {
	if lang == domain.LanguageEnglish {
		return "You are a news editor. Summarize articles in English in 2-3 sentences and list up to 5 keywords. " +
			"Answer exactly in the form:\nSUMMARY: <summary>\nKEYWORDS: <keyword>, <keyword>, ..."
	}
	return "Bạn là biên tập viên tin tức. Hãy tóm tắt bài báo bằng tiếng Việt trong 2-3 câu và liệt kê tối đa 5 từ khóa. " +
		"Trả lời đúng định dạng:\nTÓM TẮT: <tóm tắt>\nTỪ KHÓA: <từ khóa>, <từ khóa>, ..."
}

func userPrompt(content, title string, lang domain.Language) string {
	var b strings.Builder
	if lang == domain.LanguageEnglish {
		b.WriteString("Title: ")
	} else {
		b.WriteString("Tiêu đề: ")
	}
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(content)
	return b.String()
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := 0
	for i := range s {
		if runes == limit {
			return s[:i]
		}
		runes++
	}
	return s
}
