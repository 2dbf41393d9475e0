// Package aiparse turns free-form model output into a summary and keywords.
// Parse never fails: each strategy falls through to the next and the last
// one always produces text.
package aiparse

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"NewsDigest/internal/domain"
)

const (
	minSummaryLength  = 20
	minProseLength    = 30
	maxKeywords       = 8
	lineKeywordCount  = 5
	titleKeywordCount = 5
	minKeywordLength  = 2
	maxKeywordLength  = 29
)

var (
	labelRe = regexp.MustCompile(`(?im)^[ \t>*#_-]*(summary|key ?words|tóm tắt|tom tat|từ khóa|từ khoá|tu khoa)[ \t*_]*[:：][ \t*_]*`)

	// A keywords label on the same line as the summary text.
	inlineKeywordsRe = regexp.MustCompile(`(?i)(?:^|[^\pL])(key ?words|từ khóa|từ khoá|tu khoa)[ \t*_]*[:：][ \t*_]*`)

	listMarkerRe = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)])\s+`)

	quoteChars = "\"'`“”‘’«»"

	vietnameseLetters = "ăâđêôơư" +
		"àáảãạằắẳẵặầấẩẫậèéẻẽẹềếểễệìíỉĩịòóỏõọồốổỗộờớởỡợùúủũụừứửữựỳýỷỹỵ"

	placeholderKeywords = map[domain.Language][]string{
		domain.LanguageVietnamese: {"tin tức", "thời sự", "tổng hợp"},
		domain.LanguageEnglish:    {"news", "update", "report"},
	}
)

// Parse extracts a SummaryResult from raw model text. The title feeds the
// synthetic fallbacks.
func Parse(raw, title string, lang domain.Language) domain.SummaryResult {
	sections := taggedSections(raw)

	summary := sections.summary
	if !adequateSummary(summary) {
		summary = scanProse(raw, lang)
	}
	if !adequateSummary(summary) {
		summary = syntheticSummary(title, lang)
	}

	var keywords []string
	for _, candidate := range [][]string{
		sections.keywords,
		commaLineKeywords(raw),
		titleKeywords(title),
		placeholderKeywords[lang],
	} {
		if keywords = cleanKeywords(candidate); len(keywords) > 0 {
			break
		}
	}

	return domain.SummaryResult{
		Summary:  stripQuotes(summary),
		Keywords: keywords,
	}
}

type tagged struct {
	summary  string
	keywords []string
}

func taggedSections(raw string) tagged {
	var out tagged
	matches := labelRe.FindAllStringSubmatchIndex(raw, -1)
	for i, m := range matches {
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		label := strings.ToLower(raw[m[2]:m[3]])
		body := raw[m[1]:end]

		if isSummaryLabel(label) {
			if loc := inlineKeywordsRe.FindStringIndex(body); loc != nil {
				if len(out.keywords) == 0 {
					out.keywords = splitKeywords(body[loc[1]:])
				}
				body = body[:loc[0]]
			}
			if out.summary == "" {
				out.summary = domain.NormalizeWhitespace(strings.Trim(body, "*_ \t\r\n"))
			}
			continue
		}
		if len(out.keywords) == 0 {
			out.keywords = splitKeywords(body)
		}
	}
	return out
}

func isSummaryLabel(label string) bool {
	switch label {
	case "summary", "tóm tắt", "tom tat":
		return true
	}
	return false
}

// splitKeywords reads an inline list on the label line, or a bulleted list
// below it when the label line is bare.
func splitKeywords(body string) []string {
	if first, _, _ := strings.Cut(body, "\n"); strings.Trim(first, "*_ \t\r") != "" {
		body = first
	}
	fields := strings.FieldsFunc(body, func(r rune) bool {
		switch r {
		case ',', ';', '\n', '、', '，':
			return true
		}
		return false
	})

	var out []string
	for _, f := range fields {
		f = listMarkerRe.ReplaceAllString(f, "")
		f = strings.Trim(strings.TrimSpace(f), "*_.")
		if f == "" || utf8.RuneCountInString(f) > maxKeywordLength*2 {
			continue
		}
		out = append(out, f)
	}
	return out
}

func adequateSummary(s string) bool {
	return utf8.RuneCountInString(stripQuotes(s)) >= minSummaryLength
}

// scanProse returns the first line that reads like a sentence in lang.
func scanProse(raw string, lang domain.Language) string {
	for _, line := range strings.Split(raw, "\n") {
		if labelRe.MatchString(line) {
			continue
		}
		line = listMarkerRe.ReplaceAllString(line, "")
		line = domain.NormalizeWhitespace(strings.Trim(line, "*_#> \t\r"))
		if utf8.RuneCountInString(line) < minProseLength {
			continue
		}

		if lang == domain.LanguageEnglish {
			if looksEnglish(line) {
				return line
			}
			continue
		}
		if looksVietnamese(line) {
			return line
		}
	}
	return ""
}

func looksVietnamese(line string) bool {
	return strings.ContainsAny(strings.ToLower(line), vietnameseLetters)
}

func looksEnglish(line string) bool {
	first, _ := utf8.DecodeRuneInString(line)
	if !unicode.IsUpper(first) || len(strings.Fields(line)) < 4 {
		return false
	}

	var letters, ascii int
	for _, r := range line {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r <= unicode.MaxASCII {
			ascii++
		}
	}
	return letters > 0 && ascii*10 >= letters*9
}

func syntheticSummary(title string, lang domain.Language) string {
	title = stripQuotes(domain.NormalizeWhitespace(title))
	if lang == domain.LanguageEnglish {
		if title == "" {
			return "A new article was published; open the link for the full story."
		}
		return fmt.Sprintf("New article: %s. Open the link for the full story.", title)
	}
	if title == "" {
		return "Có bài viết mới, mời bạn xem chi tiết tại liên kết bên dưới."
	}
	return fmt.Sprintf("Bài viết mới: %s. Mời bạn xem chi tiết tại liên kết bên dưới.", title)
}

func commaLineKeywords(raw string) []string {
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(line, ",") {
			continue
		}
		var tokens []string
		for _, tok := range strings.Split(line, ",") {
			tok = stripQuotes(strings.Trim(strings.TrimSpace(listMarkerRe.ReplaceAllString(tok, "")), "*_."))
			n := utf8.RuneCountInString(tok)
			if n >= minKeywordLength && n <= maxKeywordLength {
				tokens = append(tokens, tok)
			}
		}
		if len(tokens) >= 2 {
			if len(tokens) > lineKeywordCount {
				tokens = tokens[:lineKeywordCount]
			}
			return tokens
		}
	}
	return nil
}

func titleKeywords(title string) []string {
	words := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	var out []string
	for _, w := range words {
		first, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(first) || utf8.RuneCountInString(w) < minKeywordLength {
			continue
		}
		out = append(out, w)
		if len(out) == titleKeywordCount {
			break
		}
	}
	return out
}

func cleanKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = stripQuotes(k)
		if k == "" {
			continue
		}
		key := strings.ToLower(k)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, k)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func stripQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), quoteChars))
}
