package aiparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsDigest/internal/domain"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		title        string
		lang         domain.Language
		wantSummary  string
		wantKeywords []string
	}{
		{
			name:         "tagged english",
			raw:          "SUMMARY: The central bank raised rates by a quarter point today.\nKEYWORDS: central bank, interest rates, \"inflation\"",
			lang:         domain.LanguageEnglish,
			wantSummary:  "The central bank raised rates by a quarter point today.",
			wantKeywords: []string{"central bank", "interest rates", "inflation"},
		},
		{
			name:         "tagged vietnamese with markdown",
			raw:          "**Tóm tắt:** Ngân hàng Nhà nước điều chỉnh lãi suất điều hành từ hôm nay.\n**Từ khóa:** lãi suất, ngân hàng",
			lang:         domain.LanguageVietnamese,
			wantSummary:  "Ngân hàng Nhà nước điều chỉnh lãi suất điều hành từ hôm nay.",
			wantKeywords: []string{"lãi suất", "ngân hàng"},
		},
		{
			name:         "keywords label on the summary line",
			raw:          "SUMMARY: The central bank raised rates to curb inflation this quarter. KEYWORDS: economy, rates, inflation",
			title:        "Bank Raises Rates",
			lang:         domain.LanguageEnglish,
			wantSummary:  "The central bank raised rates to curb inflation this quarter.",
			wantKeywords: []string{"economy", "rates", "inflation"},
		},
		{
			name:         "vietnamese keywords label on the summary line",
			raw:          "Tóm tắt: Giá vàng trong nước tăng mạnh phiên sáng nay. Từ khóa: giá vàng, thị trường",
			lang:         domain.LanguageVietnamese,
			wantSummary:  "Giá vàng trong nước tăng mạnh phiên sáng nay.",
			wantKeywords: []string{"giá vàng", "thị trường"},
		},
		{
			name:         "bulleted keywords below bare label",
			raw:          "Summary:\nChipmakers face tighter export rules starting next quarter.\n\nKeywords:\n- AI\n- chips\n- export rules\n",
			lang:         domain.LanguageEnglish,
			wantSummary:  "Chipmakers face tighter export rules starting next quarter.",
			wantKeywords: []string{"AI", "chips", "export rules"},
		},
		{
			name:         "vietnamese prose line",
			raw:          "Đây là bản tóm tắt:\n\nGiá xăng giảm mạnh trong kỳ điều hành chiều nay theo quyết định của liên bộ.",
			title:        "Giá xăng giảm",
			lang:         domain.LanguageVietnamese,
			wantSummary:  "Giá xăng giảm mạnh trong kỳ điều hành chiều nay theo quyết định của liên bộ.",
			wantKeywords: []string{"Giá"},
		},
		{
			name:         "english prose line skips chatter",
			raw:          "Sure! Here's what I found.\nthe lowercase line is long enough but not a sentence start\nApple unveiled a new laptop lineup with faster chips on Tuesday.",
			title:        "Apple and Google face EU probe",
			lang:         domain.LanguageEnglish,
			wantSummary:  "Apple unveiled a new laptop lineup with faster chips on Tuesday.",
			wantKeywords: []string{"Apple", "Google", "EU"},
		},
		{
			name:         "comma line keywords drop implausible tokens",
			raw:          "Quick take\nmarkets, gold prices, a phrase that is far too long to be a keyword, oil",
			title:        "markets",
			lang:         domain.LanguageEnglish,
			wantSummary:  "New article: markets. Open the link for the full story.",
			wantKeywords: []string{"markets", "gold prices", "oil"},
		},
		{
			name:         "short tagged summary falls back to synthetic",
			raw:          "SUMMARY: Too short\nKEYWORDS: markets",
			title:        "Stocks rally",
			lang:         domain.LanguageEnglish,
			wantSummary:  "New article: Stocks rally. Open the link for the full story.",
			wantKeywords: []string{"markets"},
		},
		{
			name:         "quotes stripped from summary",
			raw:          "SUMMARY: \"Quoted summary that is long enough to keep.\"\nKEYWORDS: 'one', “two”",
			lang:         domain.LanguageEnglish,
			wantSummary:  "Quoted summary that is long enough to keep.",
			wantKeywords: []string{"one", "two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.raw, tt.title, tt.lang)
			assert.Equal(t, tt.wantSummary, got.Summary)
			assert.Equal(t, tt.wantKeywords, got.Keywords)
		})
	}
}

func TestParseEmptyResponseUsesTitle(t *testing.T) {
	t.Parallel()

	for _, lang := range []domain.Language{domain.LanguageVietnamese, domain.LanguageEnglish} {
		got := Parse("", "T", lang)
		assert.Contains(t, got.Summary, "T", lang)
		require.NotEmpty(t, got.Keywords, lang)
		for _, k := range got.Keywords {
			assert.NotEmpty(t, k)
		}
	}
}

func TestParseCapsAndDedupesKeywords(t *testing.T) {
	t.Parallel()

	raw := "SUMMARY: A long enough summary for the keyword cap test.\nKEYWORDS: a1, a2, A1, a3, a4, a5, a6, a7, a8, a9, a10"
	got := Parse(raw, "", domain.LanguageEnglish)
	assert.Equal(t, []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8"}, got.Keywords)
}

func TestParseEmptyTaggedKeywordsFallThrough(t *testing.T) {
	t.Parallel()

	got := Parse("SUMMARY: A long enough summary with no keywords.\nKEYWORDS: \"\"", "", domain.LanguageEnglish)
	assert.Equal(t, []string{"news", "update", "report"}, got.Keywords)
}
