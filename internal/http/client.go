package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// File is one file part of a multipart request.
type File struct {
	Field  string
	Name   string
	Reader io.Reader
}

// Multipart is a form body with optional file parts.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any
	Multipart *Multipart
	Token     string
	Header    map[string]string
}

// Client talks to the storefront REST backend. It never retries; every call
// is issued exactly once.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.Api) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
	}
}

func (cl *Client) newBody(req Request) (io.Reader, string, error) {
	if req.Multipart != nil {
		buf := &bytes.Buffer{}
		mw := multipart.NewWriter(buf)
		for k, v := range req.Multipart.Fields {
			if err := mw.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("failed writing field=%s with error=%w", k, err)
			}
		}
		for _, f := range req.Multipart.Files {
			part, err := mw.CreateFormFile(f.Field, f.Name)
			if err != nil {
				return nil, "", fmt.Errorf("failed creating file part=%s with error=%w", f.Field, err)
			}
			if _, err := io.Copy(part, f.Reader); err != nil {
				return nil, "", fmt.Errorf("failed copying file=%s with error=%w", f.Name, err)
			}
		}
		if err := mw.Close(); err != nil {
			return nil, "", fmt.Errorf("failed closing multipart writer with error=%w", err)
		}
		return buf, mw.FormDataContentType(), nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	raw, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed encoding request body with error=%w", err)
	}
	return bytes.NewReader(raw), HeaderValueJson, nil
}

// Do sends req and decodes a 2xx JSON answer into out when out is non-nil.
// A 404 is reported as ErrNotFound, any other non-2xx as *APIError.
func (cl *Client) Do(c context.Context, req Request, out any) error {
	c, span := otel.Tracer.Start(
		c,
		"Client Do",
		trace.WithAttributes(
			attribute.String(log.KeyRequestMethod, req.Method),
			attribute.String(log.KeyRequestURI, req.Path),
		),
	)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client Do").
		Str(log.KeyRequestMethod, req.Method).
		Str(log.KeyRequestURI, req.Path).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "building request").Logger()
	logger.Trace().Msg("building request")
	target := cl.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	body, contentType, err := cl.newBody(req)
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	httpReq, err := http.NewRequestWithContext(c, req.Method, target, body)
	if err != nil {
		err = fmt.Errorf("failed creating request with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if contentType != "" {
		httpReq.Header.Set(HeaderContentType, contentType)
	}
	if req.Token != "" {
		httpReq.Header.Set(HeaderAuthorization, "Bearer "+req.Token)
	}
	if requestID := log.RequestIDFromContext(c); requestID != "" {
		httpReq.Header.Set(HeaderRequestID, requestID)
	}
	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	logger.Trace().Msg("built request")

	logger = logger.With().Str(log.KeyProcess, "sending request").Logger()
	logger.Debug().Msg("sending request")
	resp, err := cl.httpClient.Do(httpReq)
	if err != nil {
		err = fmt.Errorf("failed sending request with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	defer resp.Body.Close()
	logger = logger.With().Int(log.KeyResponseStatus, resp.StatusCode).Logger()
	logger.Debug().Msg("received response")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed reading response body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		err = fmt.Errorf("path=%s with error=%w", req.Path, inErrors.ErrNotFound)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = &inErrors.APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	logger = logger.With().Str(log.KeyProcess, "decoding response").Logger()
	if err := json.Unmarshal(raw, out); err != nil {
		err = fmt.Errorf("failed decoding response body with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("decoded response")
	return nil
}

func errorMessage(raw []byte) string {
	body := struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}{}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

// IsNotFound reports whether err came from a 404 answer.
func IsNotFound(err error) bool {
	return errors.Is(err, inErrors.ErrNotFound)
}
