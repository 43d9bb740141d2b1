package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestDoSignsFinalURLAndBody(t *testing.T) {
	var gotQuery, gotSig, gotBody, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotSig = r.Header.Get("X-Sig")
		gotAgent = r.Header.Get("User-Agent")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	client, err := New(WithBaseURL(srv.URL+"/"), WithName("test"), WithHeader("User-Agent", "graph-arbitrage"))
	if err != nil {
		t.Fatal(err)
	}

	var signedPath string
	var result struct {
		ID string `json:"id"`
	}
	resp, err := client.Do(context.Background(), Call{
		Method: http.MethodPost,
		Path:   "/orders",
		Query:  url.Values{"z": {"1"}, "a": {"2"}},
		Body:   map[string]string{"side": "buy"},
		Result: &result,
		Sign: func(req *http.Request, body []byte) error {
			signedPath = req.URL.RequestURI()
			req.Header.Set("X-Sig", req.Method+string(body))
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if resp.Status != http.StatusOK || result.ID != "abc" {
		t.Errorf("status=%d result=%+v", resp.Status, result)
	}
	if gotQuery != "a=2&z=1" {
		t.Errorf("query = %q, want sorted", gotQuery)
	}
	if signedPath != "/orders?a=2&z=1" {
		t.Errorf("signed path = %q", signedPath)
	}
	if gotAgent != "graph-arbitrage" {
		t.Errorf("user agent = %q", gotAgent)
	}

	var sent map[string]string
	if err := json.Unmarshal([]byte(gotBody), &sent); err != nil || sent["side"] != "buy" {
		t.Errorf("body = %q", gotBody)
	}
	if gotSig != "POST"+gotBody {
		t.Errorf("signature header = %q", gotSig)
	}
}

func TestDoStatusCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"NotFound"}`))
	}))
	defer srv.Close()

	client, err := New(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	sentinel := errors.New("not found")
	var result map[string]string
	resp, err := client.Do(context.Background(), Call{
		Method: http.MethodGet,
		Path:   "/orders/x",
		Result: &result,
		Check: func(status int, body []byte) error {
			if status == http.StatusNotFound {
				return sentinel
			}
			return nil
		},
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}
	if resp == nil || resp.Status != http.StatusNotFound || string(resp.Body) != `{"message":"NotFound"}` {
		t.Errorf("resp = %+v", resp)
	}
	if result != nil {
		t.Errorf("rejected body decoded into result: %v", result)
	}
}

func TestDoDefaultCheckRejectsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := New(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Do(context.Background(), Call{Method: http.MethodGet, Path: "/x"}); err == nil {
		t.Fatal("expected error for 502")
	}
}
