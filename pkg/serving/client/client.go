package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/logger"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/common/models"
	"github.com/chinmaydrane/CureConnect--An-EHR-platform/pkg/pipeline"
)

const defaultAttempts = 3

// APIError is a non-2xx answer from the prediction service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prediction service returned %d: %s", e.Status, e.Message)
}

// Client talks to a running prediction service.
type Client struct {
	baseURL  string
	http     *http.Client
	attempts int
}

func New(baseURL string, timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout, Transport: transport},
		attempts: defaultAttempts,
	}
}

func (c *Client) Predict(ctx context.Context, rec models.PatientRecord) (models.PredictionResponse, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var resp models.PredictionResponse
	if err := c.do(ctx, http.MethodPost, "/predict", body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Schema fetches the training schema the service was loaded with.
func (c *Client) Schema(ctx context.Context) (*pipeline.Schema, error) {
	var schema pipeline.Schema
	if err := c.do(ctx, http.MethodGet, "/api/v1/schema", nil, &schema); err != nil {
		return nil, err
	}
	if schema.Preprocessor == nil {
		return nil, fmt.Errorf("schema response has no preprocessor state")
	}
	return &schema, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	return Retry(ctx, c.attempts, 200*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		res, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		payload, err := io.ReadAll(res.Body)
		if err != nil {
			return err
		}
		if res.StatusCode >= 300 {
			var apiErr models.ErrorResponse
			if json.Unmarshal(payload, &apiErr) != nil || apiErr.Error == "" {
				apiErr.Error = strings.TrimSpace(string(payload))
			}
			return &APIError{Status: res.StatusCode, Message: apiErr.Error}
		}
		return json.Unmarshal(payload, out)
	})
}

// Retry runs fn until it succeeds, fails with a non-retriable error or runs
// out of attempts, doubling the delay between attempts up to two seconds.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts <= 1 {
		return fn()
	}

	var err error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil || !IsRetriable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		logger.Log.WithError(err).WithField("attempt", i+1).Debug("retrying prediction request")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > 2*time.Second {
			delay = 2 * time.Second
		}
	}

	return err
}

// IsRetriable reports transport failures worth another attempt. Answers
// from the service, including 5xx, are final.
func IsRetriable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status == http.StatusServiceUnavailable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
