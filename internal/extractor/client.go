// Package extractor talks to the remote Form 990 extraction service and
// owns the lifecycle of one submission.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/form990-extractor/internal/upload"
)

// APIVersion selects the extraction endpoint
type APIVersion string

const (
	APIv1 APIVersion = "v1"
	APIv2 APIVersion = "v2"

	// FormField is the multipart field carrying the PDF
	FormField = "file"

	defaultTimeout    = 120 * time.Second
	maxResponseBytes  = 32 << 20
	requestIDHeader   = "X-Request-ID"
	extractPathPrefix = "/api/extract"
)

// ErrNoFile is returned when an extraction is requested without a file
var ErrNoFile = errors.New("no file selected")

// Path returns the endpoint path for the version
func (v APIVersion) Path() string {
	if v == APIv1 {
		return extractPathPrefix
	}
	return extractPathPrefix + "/v2"
}

// Client submits PDFs to the extraction service
type Client struct {
	baseURL    string
	version    APIVersion
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithAPIVersion selects the v1 or v2 endpoint (v2 is the default)
func WithAPIVersion(v APIVersion) Option {
	return func(c *Client) { c.version = v }
}

// WithHTTPClient replaces the transport
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the transport timeout; the client adds none of its own
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api url cannot be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		version:    APIv2,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the full extraction URL
func (c *Client) Endpoint() string {
	return c.baseURL + c.version.Path()
}

// Extract posts the file as multipart form data and decodes the response.
// Service-level failures are returned as a Failure outcome; the error is
// reserved for problems reading the file or reaching the service.
func (c *Client) Extract(ctx context.Context, file *upload.FileHandle) (Outcome, error) {
	if file == nil {
		return Outcome{}, ErrNoFile
	}

	reqID := uuid.New().String()
	start := time.Now()
	log := c.logger.With(zap.String("req_id", reqID), zap.String("file", file.Name))

	body, contentType, err := buildForm(file)
	if err != nil {
		log.Error("extract.build_request_error", zap.Error(err))
		return Outcome{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), body)
	if err != nil {
		log.Error("extract.build_request_error", zap.Error(err))
		return Outcome{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)

	log.Info("extract.request",
		zap.String("url", c.Endpoint()),
		zap.Int("content_length", body.Len()),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("extract.send_error", zap.Error(err), zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return Outcome{}, fmt.Errorf("send request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.Warn("extract.response_body_close_error", zap.Error(err))
		}
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Error("extract.read_error", zap.Error(err))
		return Outcome{}, fmt.Errorf("read response: %w", err)
	}

	outcome := Decode(resp.StatusCode, raw)
	log.Info("extract.response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Stringer("outcome", outcome.Kind),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return outcome, nil
}

func buildForm(file *upload.FileHandle) (*bytes.Buffer, string, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FormField, escapeQuotes(file.Name)))
	h.Set("Content-Type", upload.PDFMediaType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
