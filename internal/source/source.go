package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ErrUnsupportedFormat is returned for files whose extension cannot be read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// DefaultMaxBytes caps the size of fetched or read documents.
const DefaultMaxBytes int64 = 32 << 20

// FetchError reports a failed URL fetch. Status is zero for transport errors.
type FetchError struct {
	URL    string
	Status int
	Cause  error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// HTTPClient is satisfied by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Loader normalises files and URLs into plain document text.
type Loader struct {
	client   HTTPClient
	logger   zerolog.Logger
	maxBytes int64
}

// NewLoader builds a loader; a nil client uses http.DefaultClient.
func NewLoader(client HTTPClient, logger zerolog.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{client: client, logger: logger, maxBytes: DefaultMaxBytes}
}

// IsURL reports whether ref looks like an http or https address.
func IsURL(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Load reads ref as a URL when it has an http scheme and as a file otherwise.
func (l *Loader) Load(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("document reference is empty")
	}
	if IsURL(ref) {
		return l.FromURL(ctx, ref)
	}
	return l.FromFile(ref)
}

// FromFile extracts text from a .docx, .pdf, .txt or .md file.
func (l *Loader) FromFile(path string) (string, error) {
	path = expandHome(path)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("open document: %s is a directory", path)
	}
	if info.Size() > l.maxBytes {
		return "", fmt.Errorf("open document: %s exceeds %d bytes", path, l.maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var text string
	switch ext {
	case ".docx":
		text, err = readDOCX(path)
	case ".pdf":
		text, err = readPDF(path)
	case ".txt", ".md", ".markdown", "":
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	l.logger.Debug().Str("path", path).Str("format", ext).Int("chars", len(text)).Msg("document loaded")
	return text, nil
}

// FromURL fetches the body of rawURL as text. Any status other than 200 is
// a *FetchError.
func (l *Loader) FromURL(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Cause: err}
	}
	req.Header.Set("Accept", "text/plain, text/markdown, text/html;q=0.9, */*;q=0.5")

	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Warn().Err(err).Str("url", rawURL).Msg("fetch failed")
		return "", &FetchError{URL: rawURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Warn().Int("status", resp.StatusCode).Str("url", rawURL).Msg("fetch returned non-200")
		return "", &FetchError{URL: rawURL, Status: resp.StatusCode, Cause: errors.New(resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return "", &FetchError{URL: rawURL, Cause: err}
	}
	if int64(len(data)) > l.maxBytes {
		return "", &FetchError{URL: rawURL, Cause: fmt.Errorf("body exceeds %d bytes", l.maxBytes)}
	}

	l.logger.Debug().Str("url", rawURL).Int("bytes", len(data)).Msg("document fetched")
	return string(data), nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
