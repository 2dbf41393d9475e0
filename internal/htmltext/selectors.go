package htmltext

// DefaultSelectors are probed in order when a feed has no selector, or its
// selector matches nothing.
var DefaultSelectors = []string{
	"article",
	`[itemprop="articleBody"]`,
	".article-content",
	".article-body",
	".post-content",
	".entry-content",
	".story-body",
	".detail-content",
	".fck_detail",
	".content",
	"main",
	"#content",
}

// Candidates returns the selectors to probe: the caller's first, then defaults.
func Candidates(selector string) []string {
	if selector == "" {
		return DefaultSelectors
	}
	out := make([]string, 0, len(DefaultSelectors)+1)
	out = append(out, selector)
	for _, s := range DefaultSelectors {
		if s != selector {
			out = append(out, s)
		}
	}
	return out
}
