package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/driftbot/driftbot/internal/schema"
	"github.com/driftbot/driftbot/internal/tools"
)

const (
	fetchUserAgent   = "Mozilla/5.0 (compatible; driftbot/1.0)"
	fetchMaxChars    = 20000
	fetchMaxBodySize = 4 << 20 // 4 MB
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// FetchURL returns a tool that fetches a URL and extracts readable text.
// HTML bodies go through readability; JSON is pretty-printed; everything
// else is returned raw. Failures are reported in the result payload so
// the model can react to them.
func FetchURL() schema.Tool {
	client := &http.Client{Timeout: 30 * time.Second}

	return tools.Func{
		ToolName:        "fetch_url",
		ToolDescription: "Fetch a URL and return its readable text content.",
		ParamSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "url": {"type": "string", "description": "Absolute http(s) URL to fetch"}
  },
  "required": ["url"]
}`),
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			rawURL, _ := args["url"].(string)
			if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
				return "", fmt.Errorf("url must be absolute http(s), got %q", rawURL)
			}
			return fetch(ctx, client, rawURL), nil
		},
	}
}

func fetch(ctx context.Context, client *http.Client, rawURL string) string {
	fail := func(err error) string {
		out, _ := json.Marshal(map[string]any{"error": err.Error(), "url": rawURL})
		return string(out)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBodySize))
	if err != nil {
		return fail(err)
	}

	ctype := resp.Header.Get("Content-Type")
	var text, extractor string

	switch {
	case strings.Contains(ctype, "application/json"):
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			formatted, _ := json.MarshalIndent(data, "", "  ")
			text = string(formatted)
		} else {
			text = string(body)
		}
		extractor = "json"

	case strings.Contains(ctype, "text/html") || isHTMLPrefix(body):
		parsedURL, _ := url.Parse(rawURL)
		article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
		if err == nil {
			text = stripTags(article.Content)
			if article.Title != "" {
				text = article.Title + "\n\n" + text
			}
		} else {
			text = stripTags(string(body))
		}
		extractor = "readability"

	default:
		text = string(body)
		extractor = "raw"
	}

	truncated := len(text) > fetchMaxChars
	if truncated {
		text = text[:fetchMaxChars]
	}

	out, _ := json.Marshal(map[string]any{
		"url":       rawURL,
		"status":    resp.StatusCode,
		"extractor": extractor,
		"truncated": truncated,
		"text":      text,
	})
	return string(out)
}

func isHTMLPrefix(b []byte) bool {
	n := len(b)
	if n > 256 {
		n = 256
	}
	prefix := strings.ToLower(strings.TrimSpace(string(b[:n])))
	return strings.HasPrefix(prefix, "<!doctype") || strings.HasPrefix(prefix, "<html")
}

func stripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, " "))
}
