package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendText_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotReq sendTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotReq)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "default", "secret", time.Second)
	if err := c.SendText(context.Background(), "5511999@c.us", "Your order shipped."); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if gotPath != "/api/sendText" {
		t.Fatalf("wrong path %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("missing api key header")
	}
	if gotReq.Session != "default" || gotReq.ChatID != "5511999@c.us" || gotReq.Text != "Your order shipped." {
		t.Fatalf("wrong payload: %+v", gotReq)
	}
}

func TestSendText_GatewayErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "default", "", time.Second)
	err := c.SendText(context.Background(), "conv", "hi")
	if !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("sends must never retry, got %d attempts", calls.Load())
	}
}

func TestSendText_NoAPIKeyHeaderWhenEmpty(t *testing.T) {
	var hasHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasHeader = r.Header["X-Api-Key"]
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "default", "", time.Second)
	if err := c.SendText(context.Background(), "conv", "hi"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if hasHeader {
		t.Fatalf("X-Api-Key must be omitted when no key is configured")
	}
}
