package source

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// DefaultTimeout bounds a URL fetch when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// UserAgent is sent with URL fetches.
const UserAgent = "resume-optimizer/1.0"

// Fetch retrieves resume or job description text from a file path or an http(s) URL.
func Fetch(ctx context.Context, input string) (content string, err error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	// Check if input is a URL
	parsedURL, urlErr := url.Parse(input)
	if urlErr == nil && (parsedURL.Scheme == "http" || parsedURL.Scheme == "https") {
		content, err = fetchFromURL(ctx, input)
		if err != nil {
			err = errors.Wrapf(err, "failed to fetch from URL: %s", input)
			return content, err
		}
		return content, err
	}

	// It's a file path - read from disk
	content, err = fetchFromFile(input)
	if err != nil {
		err = errors.Wrapf(err, "failed to fetch from file: %s", input)
		return content, err
	}

	return content, err
}

// Decode turns raw bytes into text. Input that is not valid UTF-8 is read as ISO-8859-1.
// Line endings are normalized to \n.
func Decode(data []byte) (text string, err error) {
	if utf8.Valid(data) {
		text = normalizeLineEndings(string(data))
		return text, err
	}

	var decoded []byte
	decoded, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		err = errors.Wrap(err, "failed to decode as ISO-8859-1")
		return text, err
	}

	text = normalizeLineEndings(string(decoded))
	return text, err
}

// fetchFromFile reads text from a file.
func fetchFromFile(path string) (content string, err error) {
	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read file: %s", path)
		return content, err
	}

	content, err = Decode(data)
	if err != nil {
		return content, err
	}

	if strings.TrimSpace(content) == "" {
		err = errors.New("file is empty")
		return content, err
	}

	return content, err
}

// fetchFromURL retrieves text from a URL, converting HTML pages to markdown.
func fetchFromURL(ctx context.Context, urlStr string) (content string, err error) {
	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		err = errors.Wrap(err, "failed to create HTTP request")
		return content, err
	}

	req.Header.Set("User-Agent", UserAgent)

	var resp *http.Response
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		err = errors.Wrap(err, "HTTP request failed")
		return content, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = errors.Errorf("HTTP request failed with status: %d", resp.StatusCode)
		return content, err
	}

	var bodyBytes []byte
	bodyBytes, err = io.ReadAll(resp.Body)
	if err != nil {
		err = errors.Wrap(err, "failed to read response body")
		return content, err
	}

	content, err = Decode(bodyBytes)
	if err != nil {
		return content, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(bodyBytes)
	}

	if strings.Contains(strings.ToLower(contentType), "html") {
		content = htmlToMarkdown(content)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		err = errors.New("fetched content is empty after processing")
		return content, err
	}

	return content, err
}

// htmlToMarkdown converts a page to markdown, falling back to bare tag stripping.
func htmlToMarkdown(html string) (markdown string) {
	cleaned := removeTagAndContent(html, "script")
	cleaned = removeTagAndContent(cleaned, "style")

	var err error
	markdown, err = htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		markdown = stripBasicHTML(cleaned)
	}

	return markdown
}

// stripBasicHTML removes HTML tags, keeping their text.
func stripBasicHTML(html string) (text string) {
	inTag := false
	result := strings.Builder{}
	for _, char := range html {
		if char == '<' {
			inTag = true
			continue
		}
		if char == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(char)
		}
	}

	text = strings.TrimSpace(result.String())

	return text
}

// removeTagAndContent removes a specific HTML tag and its content.
func removeTagAndContent(html, tag string) (result string) {
	result = html
	openTag := "<" + tag
	closeTag := "</" + tag + ">"

	for {
		startIdx := strings.Index(result, openTag)
		if startIdx == -1 {
			break
		}

		endIdx := strings.Index(result[startIdx:], closeTag)
		if endIdx == -1 {
			break
		}

		endIdx += startIdx + len(closeTag)
		result = result[:startIdx] + result[endIdx:]
	}

	return result
}

func normalizeLineEndings(text string) (normalized string) {
	normalized = strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return normalized
}
