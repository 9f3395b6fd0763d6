package scanner

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// DiscoverIframes performs a single-pass scan of raw HTML for iframe (and
// legacy frame) source attributes and resolves them to absolute URLs.
// Ordering matches document order; duplicates are kept so each occurrence
// is fetched independently. Sources that cannot be resolved are dropped
// with a warning and do not abort discovery of later sources.
func DiscoverIframes(body, baseURL string, logger *zap.Logger) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		logger.Warn("Invalid base URL for iframe discovery", zap.String("base_url", baseURL), zap.Error(err))
		return nil
	}

	var sources []string
	z := html.NewTokenizer(strings.NewReader(body))

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return sources
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		tn, hasAttr := z.TagName()
		tag := string(tn)
		if (tag != "iframe" && tag != "frame") || !hasAttr {
			continue
		}

		src := extractAttr(z, "src")
		if !embeddableSource(src) {
			continue
		}

		resolved, ok := resolveAgainstOrigin(src, base)
		if !ok {
			logger.Warn("Skipping unresolvable iframe source", zap.String("src", src), zap.String("base_url", baseURL))
			continue
		}
		sources = append(sources, resolved)
	}
}

// embeddableSource filters out inline data payloads, script pseudo-protocols
// and the empty-page sentinel.
func embeddableSource(src string) bool {
	src = strings.TrimSpace(src)
	if src == "" {
		return false
	}
	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(lower, "data:"):
		return false
	case strings.HasPrefix(lower, "javascript:"):
		return false
	case lower == "about:blank":
		return false
	}
	return true
}

// resolveAgainstOrigin turns src into an absolute URL. A source lacking a
// scheme joins against the origin (scheme + host + port) of the base URL,
// not the full base path.
func resolveAgainstOrigin(src string, base *url.URL) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return "", false
	}

	if parsed.IsAbs() {
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return "", false
		}
		return parsed.String(), true
	}

	// Protocol-relative sources inherit the base scheme.
	if strings.HasPrefix(src, "//") {
		return base.Scheme + ":" + parsed.String(), true
	}

	if base.Scheme == "" || base.Host == "" {
		return "", false
	}

	path := parsed.EscapedPath()
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	resolved := base.Scheme + "://" + base.Host + path
	if parsed.RawQuery != "" {
		resolved += "?" + parsed.RawQuery
	}
	return resolved, true
}

func extractAttr(z *html.Tokenizer, target string) string {
	for {
		key, val, more := z.TagAttr()
		if string(key) == target {
			return string(val)
		}
		if !more {
			return ""
		}
	}
}
