// Package stage resolves configured installer package locations into URLs a
// remote instance can download. Local files are copied into a blob store
// served by the coordinator; remote HTTP locations are probed and passed
// through.
package stage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"

	"github.com/dreamware/inboxdeploy/internal/storage"
)

// ErrUnavailable marks I/O failures while resolving a package location:
// missing local files, unreachable hosts, error responses.
var ErrUnavailable = errors.New("package unavailable")

// BlobPrefix is the URL path under which staged blobs are served.
const BlobPrefix = "/blobs/"

// Stager implements deploy.URLNormalizer.
type Stager struct {
	store   storage.Store
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

type Option func(*Stager)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Stager) { s.client = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Stager) { s.log = l }
}

// New creates a Stager that keeps staged files in store and links them
// under baseURL. With an empty baseURL local files are only checked and
// returned as file:// URLs.
func New(store storage.Store, baseURL string, opts ...Option) *Stager {
	s := &Stager{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize resolves raw. An empty location resolves to "".
func (s *Stager) Normalize(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnavailable, raw, err)
	}

	switch u.Scheme {
	case "http", "https":
		if err := s.probe(ctx, raw); err != nil {
			return "", err
		}
		return raw, nil
	case "file":
		return s.stageFile(u.Path)
	case "":
		return s.stageFile(raw)
	default:
		// s3://, ftp:// and friends are fetched by the runtime itself.
		return raw, nil
	}
}

func (s *Stager) probe(ctx context.Context, raw string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, raw, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, raw, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, raw, err)
	}
	resp.Body.Close()

	// Some artifact servers refuse HEAD; that still proves the host is up.
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusMethodNotAllowed {
		return fmt.Errorf("%w: %s: status %d", ErrUnavailable, raw, resp.StatusCode)
	}
	s.log.Debug().Str("url", raw).Int("status", resp.StatusCode).Msg("package url reachable")
	return nil
}

func (s *Stager) stageFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnavailable, path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if s.baseURL == "" {
		return "file://" + abs, nil
	}

	key := Key(data)
	exists, err := s.store.Has(key)
	if err != nil {
		return "", fmt.Errorf("%w: stage %s: %w", ErrUnavailable, abs, err)
	}
	if !exists {
		if err := s.store.Put(key, data); err != nil {
			return "", fmt.Errorf("%w: stage %s: %w", ErrUnavailable, abs, err)
		}
		s.log.Info().Str("file", abs).Str("key", key).Int("bytes", len(data)).Msg("staged package")
	}

	return s.baseURL + BlobPrefix + key + "/" + url.PathEscape(filepath.Base(abs)), nil
}

// Blob returns the staged content for key.
func (s *Stager) Blob(key string) ([]byte, error) {
	return s.store.Get(key)
}

// Key is the store key for data: its hex blake3 digest.
func Key(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
