package toolexec

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/minechat/llmbridge/internal/utils"
)

const (
	// webFetchTimeout bounds one page fetch.
	webFetchTimeout = 30 * time.Second
	// webFetchMaxBody caps the fetched HTML size at 10MB.
	webFetchMaxBody = 10 * 1024 * 1024
	// webFetchUserAgent identifies the fetcher to origin servers.
	webFetchUserAgent = "llmbridge-webfetch/1.0"
	// webFetchMaxRedirects bounds redirect chains.
	webFetchMaxRedirects = 10
)

type webFetchInput struct {
	URL string `json:"url" jsonschema:"description=URL of the web page to fetch; partial URLs like 'example.com' get an https:// prefix,required"`

	TimeoutSeconds int `json:"timeout_seconds,omitempty" jsonschema:"description=Request timeout in seconds (default 30)"`
}

type webFetchOutput struct {
	URL      string `json:"url" jsonschema:"description=Final URL after redirects"`
	Markdown string `json:"markdown" jsonschema:"description=Page content converted from HTML to Markdown"`
}

var webFetchClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= webFetchMaxRedirects {
			return fmt.Errorf("too many redirects (>%d)", webFetchMaxRedirects)
		}
		return nil
	},
}

// newWebFetchTool returns the web page fetcher: it downloads a page and hands
// the model Markdown instead of raw HTML, which keeps tool results compact.
func newWebFetchTool() builtin {
	return newBuiltin(
		"web_fetch",
		"Fetches a web page and returns its content converted from HTML to Markdown. Follows redirects.",
		func(ctx context.Context, input webFetchInput) (any, error) {
			return fetchPage(ctx, input)
		},
	)
}

func fetchPage(ctx context.Context, input webFetchInput) (webFetchOutput, error) {
	pageURL := strings.TrimSpace(input.URL)
	if pageURL == "" {
		return webFetchOutput{}, fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		pageURL = "https://" + pageURL
	}

	timeout := webFetchTimeout
	if input.TimeoutSeconds > 0 {
		timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return webFetchOutput{}, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", webFetchUserAgent)

	resp, err := webFetchClient.Do(req)
	if err != nil {
		return webFetchOutput{}, fmt.Errorf("fetch failed: %w", err)
	}
	defer utils.CloseWithLog(resp.Body, pageURL)

	if resp.StatusCode != http.StatusOK {
		return webFetchOutput{}, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, pageURL)
	}

	htmlBytes, err := io.ReadAll(io.LimitReader(resp.Body, webFetchMaxBody))
	if err != nil {
		return webFetchOutput{}, fmt.Errorf("failed to read page body: %w", err)
	}
	if len(htmlBytes) == webFetchMaxBody {
		return webFetchOutput{}, fmt.Errorf("page exceeds %d byte limit", webFetchMaxBody)
	}

	markdown, err := htmltomarkdown.ConvertString(string(htmlBytes))
	if err != nil {
		return webFetchOutput{}, fmt.Errorf("html conversion failed: %w", err)
	}

	return webFetchOutput{
		URL:      resp.Request.URL.String(),
		Markdown: markdown,
	}, nil
}
