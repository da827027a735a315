package mes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/pkg/metrics"
)

const breakerName = "mes"

// truncateString обрезает строку до указанной длины
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Client клиент API МЭШ, реализует service.IMesAPI
type Client struct {
	cfg        *Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	log        *slog.Logger
}

func NewClient(cfg *Config, log *slog.Logger) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 4xx это проблема токена или запроса, а не недоступность МЭШ
		IsSuccessful: func(err error) bool {
			var upstream *domain.UpstreamError
			if errors.As(err, &upstream) {
				return upstream.StatusCode < http.StatusInternalServerError && upstream.StatusCode != http.StatusRequestTimeout
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("mes circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	})

	return c
}

// request описание одного вызова
type request struct {
	name   string // имя метода для логов и метрик
	method string
	url    string
	query  url.Values
	token  string
	body   any
}

func (c *Client) apiURL(path string) string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + path
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-mes-subsystem", c.cfg.Subsystem)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("auth-token", token)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("x-mes-api-key", c.cfg.APIKey)
	}
}

// do выполняет запрос через circuit breaker. Любой не-2xx статус и таймаут превращаются в *domain.UpstreamError
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	return c.execute(r.name, func() ([]byte, error) {
		return c.roundTrip(ctx, c.httpClient, r)
	})
}

// execute общий путь вызова: breaker, метрики, приведение ошибок
func (c *Client) execute(name string, fn func() ([]byte, error)) ([]byte, error) {
	start := time.Now()

	body, err := c.breaker.Execute(fn)

	status := "ok"
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		err = &domain.UpstreamError{StatusCode: http.StatusServiceUnavailable, Method: name, Err: err}
		status = "breaker_open"
	case errors.As(err, &upstream):
		status = strconv.Itoa(upstream.StatusCode)
	case err != nil:
		status = "error"
	}

	metrics.UpstreamRequests.WithLabelValues(name, status).Inc()
	metrics.UpstreamDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	return body, err
}

func (c *Client) roundTrip(ctx context.Context, client *http.Client, r request) ([]byte, error) {
	var payload io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("ошибка сериализации запроса %s: %w", r.name, err)
		}
		payload = bytes.NewReader(data)
	}

	target := r.url
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.method, target, payload)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса %s: %w", r.name, err)
	}
	c.setHeaders(httpReq, r.token)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &domain.UpstreamError{StatusCode: http.StatusRequestTimeout, Method: r.name, Err: err}
		}
		return nil, fmt.Errorf("ошибка выполнения запроса %s: %w", r.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &domain.UpstreamError{StatusCode: http.StatusRequestTimeout, Method: r.name, Err: err}
		}
		return nil, fmt.Errorf("ошибка чтения ответа %s: %w", r.name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug("mes API returned non-2xx status",
			"method", r.name,
			"status_code", resp.StatusCode,
			"body_preview", truncateString(string(body), 200),
		)
		return nil, &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Method:     r.name,
			Body:       truncateString(string(body), 500),
		}
	}

	return body, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// getJSON GET запрос с декодированием ответа
func getJSON[T any](ctx context.Context, c *Client, name, path, token string, query url.Values) (T, error) {
	var out T
	body, err := c.do(ctx, request{name: name, method: http.MethodGet, url: c.apiURL(path), query: query, token: token})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		c.log.Debug("failed to unmarshal mes API response",
			"error", err,
			"method", name,
			"body_preview", truncateString(string(body), 200),
		)
		return out, fmt.Errorf("mes %s unmarshal failed: %w", name, err)
	}
	return out, nil
}

// envelope ответы family api заворачивают данные в payload
type envelope[T any] struct {
	Payload T `json:"payload"`
}

func dateRange(from, to time.Time) url.Values {
	q := url.Values{}
	q.Set("from", domain.FormatDate(from))
	q.Set("to", domain.FormatDate(to))
	return q
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}
