package valuation

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 10 * time.Second

// HTTPService calls a remote valuation service at POST {baseURL}/valuations.
type HTTPService struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
}

type HTTPOption func(*HTTPService)

// WithTimeout bounds each request. Zero keeps the default.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDialer replaces the client's dialer, e.g. with an in-memory listener.
func WithDialer(dial func(addr string) (net.Conn, error)) HTTPOption {
	return func(s *HTTPService) {
		s.client.Dial = dial
	}
}

func NewHTTPService(baseURL string, opts ...HTTPOption) *HTTPService {
	s := &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		client: &fasthttp.Client{
			Name:                "lcp-engine",
			MaxConnsPerHost:     100,
			MaxIdleConnDuration: 90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type serviceErrorBody struct {
	Message string `json:"message"`
}

// Calculate posts the input and decodes the answer. The request deadline is
// the earlier of the context deadline and the configured timeout; the context
// is only checked before sending.
func (s *HTTPService) Calculate(ctx context.Context, in Input) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	body, err := json.Marshal(in)
	if err != nil {
		return Output{}, fmt.Errorf("encode valuation input: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.baseURL + "/valuations")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return Output{}, fmt.Errorf("valuation request: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		var eb serviceErrorBody
		if json.Unmarshal(resp.Body(), &eb) != nil || eb.Message == "" {
			eb.Message = fasthttp.StatusMessage(status)
		}
		return Output{}, &ServiceError{StatusCode: status, Message: eb.Message}
	}

	var out Output
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return Output{}, fmt.Errorf("decode valuation output: %w", err)
	}
	return out, nil
}
