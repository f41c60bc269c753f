package encodingcom_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"encodeflow/internal/encodingcom"
	"encodeflow/internal/services"
	"encodeflow/internal/testsupport"
)

func TestSubmitPostsFormAndReturnsMediaID(t *testing.T) {
	var gotForm url.Values
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		_, _ = io.WriteString(w, testsupport.AddMediaResponse("8675309"))
	}))
	defer server.Close()

	client := encodingcom.NewClient(server.URL)
	id, err := client.Submit(context.Background(), []byte("<query><action>AddMedia</action></query>"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "8675309" {
		t.Fatalf("unexpected media id %q", id)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	if gotForm.Get("xml") != "<query><action>AddMedia</action></query>" {
		t.Fatalf("unexpected xml form field %q", gotForm.Get("xml"))
	}
}

func TestSubmitMalformedResponses(t *testing.T) {
	cases := map[string]string{
		"not xml":        "Internal hiccup",
		"missing id":     "<response><message>Queued</message></response>",
		"empty id":       "<response><MediaID>  </MediaID></response>",
		"provider error": "<response><errors><error>Wrong user key</error></errors></response>",
	}
	for name, body := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		}))
		_, err := encodingcom.NewClient(server.URL).Submit(context.Background(), []byte("<query/>"))
		server.Close()
		if !errors.Is(err, services.ErrMalformedProviderResponse) {
			t.Fatalf("%s: expected ErrMalformedProviderResponse, got %v", name, err)
		}
		if errors.Is(err, services.ErrTransport) {
			t.Fatalf("%s: malformed response must not be classified as transport", name)
		}
	}
}

func TestSubmitNon2xxIsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := encodingcom.NewClient(server.URL).Submit(context.Background(), []byte("<query/>"))
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status code in error, got %v", err)
	}
}

func TestSubmitTimeoutIsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := encodingcom.NewClient(server.URL, encodingcom.WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := client.Submit(context.Background(), []byte("<query/>"))
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout not honoured, took %s", elapsed)
	}
}

type failingDoer struct{ err error }

func (f failingDoer) Do(*http.Request) (*http.Response, error) { return nil, f.err }

func TestSubmitConnectionErrorIsTransportFailure(t *testing.T) {
	client := encodingcom.NewClient("http://provider.invalid/", encodingcom.WithHTTPClient(failingDoer{err: errors.New("connection refused")}))
	_, err := client.Submit(context.Background(), []byte("<query/>"))
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if services.Escalates(err) {
		t.Fatal("transport failures must not escalate")
	}
}
