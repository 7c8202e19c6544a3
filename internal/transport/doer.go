// Package transport is the request/response boundary between the screen
// controllers and the profile service.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"

	"petcore/internal/observability"
	"petcore/pkg/domain"
)

// File is a multipart file part. Field is the form field name; for slot
// uploads it is the slot name.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Request is a POST to an endpoint relative to the service base URL. Requests
// with a File are sent as multipart/form-data, others as url-encoded forms.
type Request struct {
	Endpoint string
	Fields   map[string]string
	File     *File
}

// Response is a completed exchange; any status code is a response.
type Response struct {
	Status int
	Body   []byte
}

// Doer performs one request/response exchange. Implementations return a
// *domain.TransportError when no response was received.
type Doer interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(ctx context.Context, req Request) (Response, error)

// Do calls f.
func (f DoerFunc) Do(ctx context.Context, req Request) (Response, error) { return f(ctx, req) }

// HTTPDoer sends requests over net/http.
type HTTPDoer struct {
	base   *url.URL
	client *http.Client
	logger observability.Logger
}

// NewHTTPDoer builds a doer rooted at baseURL. A nil client uses http.DefaultClient.
func NewHTTPDoer(baseURL string, client *http.Client, logger observability.Logger) (*HTTPDoer, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDoer{base: u, client: client, logger: observability.OrNop(logger)}, nil
}

// Do implements Doer.
func (d *HTTPDoer) Do(ctx context.Context, req Request) (Response, error) {
	endpoint := strings.TrimPrefix(req.Endpoint, "/")
	target := d.base.ResolveReference(&url.URL{Path: endpoint})

	body, contentType, err := encodeBody(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode %s: %w", endpoint, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), body)
	if err != nil {
		return Response{}, &domain.TransportError{Op: endpoint, Err: err}
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		d.logger.Warn("request failed", "endpoint", endpoint, "error", err)
		return Response{}, &domain.TransportError{Op: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &domain.TransportError{Op: endpoint, Err: err}
	}
	d.logger.Debug("response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(data))
	return Response{Status: resp.StatusCode, Body: data}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func encodeBody(req Request) (io.Reader, string, error) {
	if req.File == nil {
		form := url.Values{}
		for _, k := range sortedKeys(req.Fields) {
			form.Set(k, req.Fields[k])
		}
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, k := range sortedKeys(req.Fields) {
		if err := w.WriteField(k, req.Fields[k]); err != nil {
			return nil, "", err
		}
	}
	contentType := req.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, req.File.Field, req.File.Name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.File.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
