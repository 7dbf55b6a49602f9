// Package nlu talks to the language-model service. The service is an opaque
// HTTP collaborator with two endpoints: classify (context-prefixed text in,
// intent JSON out) and summarize (question plus result rows in, prose out).
//
// Both calls are read-only, so they retry with exponential backoff inside
// the caller's deadline. Transport failures and malformed payloads come back
// as sentinel errors the orchestrator maps into its own taxonomy.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/varejolabs/salesbot/internal/domain"
)

var (
	// ErrUnavailable indicates the service could not be reached or kept
	// answering with server errors after all retries.
	ErrUnavailable = errors.New("nlu: service unavailable")

	// ErrBadPayload indicates the service answered 200 with a body that
	// does not decode into the expected shape.
	ErrBadPayload = errors.New("nlu: malformed payload")
)

// Classifier extracts a structured intent from a user message.
type Classifier interface {
	Classify(ctx context.Context, contextText, question string) (domain.IntentPayload, error)
}

// Summarizer turns result rows into a natural-language answer.
type Summarizer interface {
	Summarize(ctx context.Context, question string, rows []domain.Row) (string, error)
}

// Client is the HTTP implementation of both interfaces.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// NewClient builds a Client. timeout bounds each individual attempt;
// maxRetries is the number of retries after the first attempt.
func NewClient(baseURL string, timeout time.Duration, maxRetries int) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

type classifyRequest struct {
	Context  string `json:"context,omitempty"`
	Question string `json:"question"`
}

// Classify implements Classifier.
func (c *Client) Classify(ctx context.Context, contextText, question string) (domain.IntentPayload, error) {
	body, err := c.post(ctx, "/api/nlu/classify", classifyRequest{
		Context:  contextText,
		Question: question,
	})
	if err != nil {
		return domain.IntentPayload{}, err
	}

	var payload domain.IntentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.IntentPayload{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	log.Debug().
		Str("intent", string(payload.Intent)).
		Msg("intent classified")
	return payload, nil
}

type summarizeRequest struct {
	Question string       `json:"question"`
	Rows     []domain.Row `json:"rows"`
}

type summarizeResponse struct {
	Answer string `json:"answer"`
}

// Summarize implements Summarizer.
func (c *Client) Summarize(ctx context.Context, question string, rows []domain.Row) (string, error) {
	body, err := c.post(ctx, "/api/nlu/summarize", summarizeRequest{
		Question: question,
		Rows:     rows,
	})
	if err != nil {
		return "", err
	}

	var resp summarizeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if resp.Answer == "" {
		return "", fmt.Errorf("%w: empty answer", ErrBadPayload)
	}
	return resp.Answer, nil
}

// post sends the payload and returns the raw 200 body. The request is
// rebuilt on every attempt so retries do not reuse a consumed body.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if ctx.Err() != nil {
			// The attempt may have raced a cancellation and still produced a
			// response; release its connection before bailing out.
			if err == nil {
				resp.Body.Close()
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			var buf bytes.Buffer
			_, err := buf.ReadFrom(resp.Body)
			resp.Body.Close()
			if err != nil {
				lastErr = err
				continue
			}
			return buf.Bytes(), nil
		}

		resp.Body.Close()
		lastErr = fmt.Errorf("status %d", resp.StatusCode)
		// Client errors are not transient; do not burn retries on them.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
