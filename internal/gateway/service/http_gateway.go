package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/echocipher/carrier/internal/errors"
	gatewayDomain "github.com/echocipher/carrier/internal/gateway/domain"
)

const (
	encodePath   = "/api/v1/encode"
	decodePath   = "/api/v1/decode"
	healthPath   = "/health"
	headerAPIKey = "X-API-Key"
)

// HTTPGateway calls the transform service over multipart HTTP.
type HTTPGateway struct {
	cfg     Config
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// HTTPOption customizes an HTTPGateway.
type HTTPOption func(*HTTPGateway)

// WithHTTPClient overrides the client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(g *HTTPGateway) {
		if client != nil {
			g.client = client
		}
	}
}

// NewHTTPGateway creates a gateway for the service at cfg.URL. The per-call
// deadline comes from cfg.Timeout; the client itself has none.
func NewHTTPGateway(cfg Config, logger *slog.Logger, opts ...HTTPOption) *HTTPGateway {
	g := &HTTPGateway{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Encode uploads the audio and returns the zip bundle produced by the service.
func (g *HTTPGateway) Encode(
	ctx context.Context,
	req gatewayDomain.EncodeRequest,
) (*gatewayDomain.EncodeResult, error) {
	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := [][2]string{
		{"user_id", req.UserID},
		{"master_key", req.MasterKeyHex},
		{"compress", strconv.FormatBool(req.Options.Compress)},
		{"max_chunk_bytes", strconv.FormatInt(maxChunkBytes(req.Options.MaxChunkBytes, g.cfg.DefaultMaxChunkBytes), 10)},
	}
	if err := writeMultipart(writer, "file", req.FileName, req.Audio, fields); err != nil {
		return nil, err
	}

	resp, payload, err := g.post(ctx, encodePath, writer.FormDataContentType(), body)
	if err != nil {
		return nil, err
	}
	if !acceptsContentType(resp.Header.Get("Content-Type"), "application/zip", "application/x-zip-compressed") {
		return nil, gatewayDomain.NewFailure("unexpected encode content type %q", resp.Header.Get("Content-Type"))
	}

	stem := strings.TrimSuffix(req.FileName, filepath.Ext(req.FileName))
	result := &gatewayDomain.EncodeResult{
		Bundle:       payload,
		FileName:     attachmentName(resp.Header, stem+"_images.zip"),
		TotalImages:  headerInt(resp.Header, "X-Total-Images"),
		OriginalSize: int64(headerInt(resp.Header, "X-Original-Size")),
		Compressed:   strings.EqualFold(resp.Header.Get("X-Compressed"), "true"),
	}
	if result.OriginalSize == 0 {
		result.OriginalSize = int64(len(req.Audio))
	}

	g.logger.Debug("gateway encode completed",
		slog.String("user_id", req.UserID),
		slog.String("bundle_file_name", result.FileName),
		slog.Int("bundle_size", len(payload)),
	)
	return result, nil
}

// Decode uploads the bundle and returns the recovered audio.
func (g *HTTPGateway) Decode(
	ctx context.Context,
	req gatewayDomain.DecodeRequest,
) (*gatewayDomain.DecodeResult, error) {
	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := [][2]string{
		{"user_id", req.UserID},
		{"master_key", req.MasterKeyHex},
	}
	if req.OutputFileName != "" {
		fields = append(fields, [2]string{"output_filename", req.OutputFileName})
	}
	if err := writeMultipart(writer, "images", "bundle.zip", req.Bundle, fields); err != nil {
		return nil, err
	}

	resp, payload, err := g.post(ctx, decodePath, writer.FormDataContentType(), body)
	if err != nil {
		return nil, err
	}
	contentType := resp.Header.Get("Content-Type")
	if !acceptsContentType(contentType, "audio/") {
		return nil, gatewayDomain.NewFailure("unexpected decode content type %q", contentType)
	}

	fallback := req.OutputFileName
	if fallback == "" {
		fallback = "recovered_audio.wav"
	}
	return &gatewayDomain.DecodeResult{
		Audio:       payload,
		FileName:    attachmentName(resp.Header, fallback),
		ContentType: contentType,
		TotalChunks: headerInt(resp.Header, "X-Total-Chunks"),
	}, nil
}

// Health checks that the service answers its health endpoint.
func (g *HTTPGateway) Health(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+healthPath, nil)
	if err != nil {
		return gatewayDomain.NewFailure("build health request: %v", err)
	}
	g.setAPIKey(request)

	resp, err := g.client.Do(request)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := readLimited(resp.Body, healthBodyLimit)
	if errors.Is(err, errResponseTooLarge) {
		return gatewayDomain.NewFailure("%s: %v", healthPath, err)
	}
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	return statusError(resp.StatusCode, payload)
}

func (g *HTTPGateway) setAPIKey(request *http.Request) {
	if g.cfg.APIKey != "" {
		request.Header.Set(headerAPIKey, g.cfg.APIKey)
	}
}

// post sends a multipart body and returns the response with its fully read,
// non-empty, 2xx payload.
func (g *HTTPGateway) post(
	ctx context.Context,
	path, contentType string,
	body io.Reader,
) (*http.Response, []byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, body)
	if err != nil {
		return nil, nil, gatewayDomain.NewFailure("build request: %v", err)
	}
	request.Header.Set("Content-Type", contentType)
	g.setAPIKey(request)

	resp, err := g.client.Do(request)
	if err != nil {
		return nil, nil, classifyTransportError(ctx, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := readLimited(resp.Body, g.cfg.maxResponseBytes())
	if errors.Is(err, errResponseTooLarge) {
		return nil, nil, gatewayDomain.NewFailure("%s: %v", path, err)
	}
	if err != nil {
		return nil, nil, classifyTransportError(ctx, err)
	}
	if err := statusError(resp.StatusCode, payload); err != nil {
		g.logger.Warn("gateway request rejected",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Any("error", err),
		)
		return nil, nil, err
	}
	if len(payload) == 0 {
		return nil, nil, gatewayDomain.NewFailure("empty response body from %s", path)
	}
	return resp, payload, nil
}

var errResponseTooLarge = errors.New("response body too large")

// readLimited reads r to the end and fails once more than limit bytes arrive.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", errResponseTooLarge, limit)
	}
	return payload, nil
}

func writeMultipart(writer *multipart.Writer, fileField, fileName string, data []byte, fields [][2]string) error {
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return gatewayDomain.NewFailure("write %s field: %v", f[0], err)
		}
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return gatewayDomain.NewFailure("create %s field: %v", fileField, err)
	}
	if _, err := part.Write(data); err != nil {
		return gatewayDomain.NewFailure("write %s field: %v", fileField, err)
	}
	if err := writer.Close(); err != nil {
		return gatewayDomain.NewFailure("close multipart writer: %v", err)
	}
	return nil
}

// classifyTransportError maps a client or body read error to a gateway category.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return gatewayDomain.NewTimeout(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return gatewayDomain.NewTimeout(err)
	}
	return gatewayDomain.NewFailure("transport error: %v", err)
}

// statusError returns nil for 2xx codes. 408 and 504 are timeouts; any other
// status is a failure carrying the service's detail message.
func statusError(code int, payload []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	detail := errorDetail(payload)
	if code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout {
		return gatewayDomain.NewTimeout(fmt.Errorf("status %d: %s", code, detail))
	}
	return gatewayDomain.NewFailure("status %d: %s", code, detail)
}

// errorDetail extracts the {"detail": ...} message of an error response,
// falling back to the raw body.
func errorDetail(payload []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && len(body.Detail) > 0 {
		var text string
		if err := json.Unmarshal(body.Detail, &text); err == nil {
			return text
		}
		return string(body.Detail)
	}
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return "no detail"
	}
	return text
}

// acceptsContentType reports whether contentType is application/octet-stream
// or matches one of the allowed types. An allowed entry ending in "/" matches
// a whole top-level type.
func acceptsContentType(contentType string, allowed ...string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if mediaType == "application/octet-stream" {
		return true
	}
	for _, a := range allowed {
		if strings.HasSuffix(a, "/") && strings.HasPrefix(mediaType, a) {
			return true
		}
		if mediaType == a {
			return true
		}
	}
	return false
}

func attachmentName(header http.Header, fallback string) string {
	_, params, err := mime.ParseMediaType(header.Get("Content-Disposition"))
	if err != nil {
		return fallback
	}
	name := filepath.Base(params["filename"])
	if name == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}

func headerInt(header http.Header, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(header.Get(key)))
	if err != nil {
		return 0
	}
	return v
}
