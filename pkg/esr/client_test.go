package esr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("gratz.seeds", "............1",
		WithBaseURL("http://esr.test"),
		WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestAcknowledge_BuildsActionPayload(t *testing.T) {
	var capturedURL string
	var captured actionRequest

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		body, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"qr":"payload","esr":"esr://sign"}`)),
			Header:     http.Header{},
		}, nil
	})

	artifact, err := newTestClient(t, rt).Acknowledge(context.Background(), "felipenseeds", "thanks!")
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}

	if capturedURL != "http://esr.test/qr" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if len(captured.Actions) != 1 {
		t.Fatalf("expected one action, got %d", len(captured.Actions))
	}
	act := captured.Actions[0]
	if act.Account != "gratz.seeds" || act.Name != "acknowledge" {
		t.Fatalf("unexpected action header %+v", act)
	}
	if act.Data.To != "felipenseeds" || act.Data.Memo != "thanks!" {
		t.Fatalf("unexpected action data %+v", act.Data)
	}
	if artifact.QR != "payload" || artifact.DeepLink != "esr://sign" {
		t.Fatalf("unexpected artifact %+v", artifact)
	}
}

func TestAcknowledge_NonSuccessStatus(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader(`upstream broke`)),
			Header:     http.Header{},
		}, nil
	})

	if _, err := newTestClient(t, rt).Acknowledge(context.Background(), "felipenseeds", ""); err == nil {
		t.Fatalf("expected error for non-2xx status")
	}
}

func TestAcknowledge_MalformedBody(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"unexpected":true}`)),
			Header:     http.Header{},
		}, nil
	})

	if _, err := newTestClient(t, rt).Acknowledge(context.Background(), "felipenseeds", "oi"); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}
