package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"belief-interview/internal/domain"
	"belief-interview/internal/usecase"
)

// Interviewer is the Conversation Director as seen by the HTTP boundary.
type Interviewer interface {
	Start(ctx context.Context, in usecase.StartInput) (usecase.StartOutput, error)
	Reply(ctx context.Context, in usecase.ReplyInput) (usecase.ReplyOutput, error)
	End(ctx context.Context, conversationID string) error
	Conversation(ctx context.Context, conversationID string) (domain.Conversation, error)
}

// SurveySubmitter enrolls participants.
type SurveySubmitter interface {
	Submit(ctx context.Context, fields map[string]any) (string, error)
}

type Handler struct {
	interviewer    Interviewer
	surveys        SurveySubmitter
	logger         *slog.Logger
	allowedOrigins string
	router         http.Handler
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithAllowedOrigins sets Access-Control-Allow-Origin. Empty disables CORS
// headers.
func WithAllowedOrigins(origins string) Option {
	return func(h *Handler) { h.allowedOrigins = origins }
}

func NewHandler(interviewer Interviewer, surveys SurveySubmitter, opts ...Option) (*Handler, error) {
	if interviewer == nil {
		return nil, errors.New("handler: interviewer must not be nil")
	}
	if surveys == nil {
		return nil, errors.New("handler: survey service must not be nil")
	}
	h := &Handler{
		interviewer: interviewer,
		surveys:     surveys,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.router = h.routes()
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Handle serves an API Gateway proxy event through the same router used by
// the HTTP server.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := toHTTPRequest(ctx, event)
	if err != nil {
		h.logger.Error("failed to convert proxy event", "path", event.Path, "err", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"malformed request","code":"INVALID_INPUT"}`,
		}, nil
	}

	w := newBufferedResponse()
	h.router.ServeHTTP(w, req)

	headers := make(map[string]string, len(w.header))
	for k, v := range w.header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: w.status,
		Headers:    headers,
		Body:       w.body.String(),
	}, nil
}

func toHTTPRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := event.Body
	if event.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, err
		}
		body = string(raw)
	}

	u := url.URL{Path: event.Path}
	if len(event.MultiValueQueryStringParameters) > 0 {
		u.RawQuery = url.Values(event.MultiValueQueryStringParameters).Encode()
	} else if len(event.QueryStringParameters) > 0 {
		q := url.Values{}
		for k, v := range event.QueryStringParameters {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	method := event.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range event.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

type bufferedResponse struct {
	header http.Header
	status int
	body   strings.Builder
	wrote  bool
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: http.Header{}, status: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header { return b.header }

func (b *bufferedResponse) WriteHeader(status int) {
	if b.wrote {
		return
	}
	b.wrote = true
	b.status = status
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	b.wrote = true
	return b.body.Write(p)
}
