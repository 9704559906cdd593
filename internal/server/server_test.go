package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

type routesHandler struct {
	routes []string
	body   string
}

func (h routesHandler) Routes() []string { return h.routes }

func (h routesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(h.body))
}

func TestBasicRouter(t *testing.T) {
	t.Run("Handle filters by method", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc("post", "/resolve", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("ok"))
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
			t.Errorf("POST: got %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resolve", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET: expected 405, got %d", rec.Code)
		}
	})

	t.Run("middleware runs in registration order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mw("first"), mw("second"))
		r.Handler(routesHandler{routes: []string{"/a", "GET /b"}, body: "handled"})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/b", nil))

		if rec.Body.String() != "handled" {
			t.Errorf("unexpected body %q", rec.Body.String())
		}
		if strings.Join(order, ",") != "first,second" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("Server uses router as handler", func(t *testing.T) {
		r := NewBasicRouter()
		srv := r.Server("127.0.0.1:0")
		if srv.Handler != r {
			t.Error("expected router to be the server handler")
		}
		if srv.ReadHeaderTimeout == 0 {
			t.Error("expected read header timeout")
		}
	})
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	r := NewBasicRouter()
	r.Use(LoggingMiddleware(logger))
	r.HandleFunc("GET", "/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	r.HandleFunc("GET", "/ok", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("hello"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	out := buf.String()
	if !strings.Contains(out, "path=/ok") || !strings.Contains(out, "status=200") {
		t.Errorf("expected request log, got %q", out)
	}

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	out = buf.String()
	if !strings.Contains(out, "WARN") || !strings.Contains(out, "status=404") {
		t.Errorf("expected warning for 404, got %q", out)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)

	r := NewBasicRouter()
	r.Use(RecoverMiddleware(logger))
	r.HandleFunc("GET", "/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`))
	}))
}

func callbackRequest(params url.Values) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/callback?"+params.Encode(), nil)
}

func TestExchangeCallback(t *testing.T) {
	ts := newTokenServer(t)
	defer ts.Close()

	config := &oauth2.Config{ClientID: "id", ClientSecret: "secret", Endpoint: oauth2.Endpoint{TokenURL: ts.URL}}

	t.Run("state mismatch", func(t *testing.T) {
		req := callbackRequest(url.Values{"state": {"other"}, "code": {"good-code"}})
		_, err := ExchangeCallback(req.Context(), config, req, "expected")

		ce, ok := err.(*CallbackError)
		if !ok || ce.Status != http.StatusBadRequest {
			t.Fatalf("expected 400 callback error, got %v", err)
		}
	})

	t.Run("empty expected state is rejected", func(t *testing.T) {
		req := callbackRequest(url.Values{"code": {"good-code"}})
		if _, err := ExchangeCallback(req.Context(), config, req, ""); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("provider error", func(t *testing.T) {
		req := callbackRequest(url.Values{"state": {"s"}, "error": {"access_denied"}})
		_, err := ExchangeCallback(req.Context(), config, req, "s")
		if err == nil || !strings.Contains(err.Error(), "access_denied") {
			t.Fatalf("expected access_denied error, got %v", err)
		}
	})

	t.Run("exchange failure", func(t *testing.T) {
		req := callbackRequest(url.Values{"state": {"s"}, "code": {"bad-code"}})
		_, err := ExchangeCallback(req.Context(), config, req, "s")

		ce, ok := err.(*CallbackError)
		if !ok || ce.Status != http.StatusBadGateway {
			t.Fatalf("expected 502 callback error, got %v", err)
		}
	})

	t.Run("success", func(t *testing.T) {
		req := callbackRequest(url.Values{"state": {"s"}, "code": {"good-code"}})
		token, err := ExchangeCallback(req.Context(), config, req, "s")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.AccessToken != "access" || token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", token)
		}
	})
}

func TestOAuthHandler(t *testing.T) {
	ts := newTokenServer(t)
	defer ts.Close()

	config := &oauth2.Config{ClientID: "id", ClientSecret: "secret", Endpoint: oauth2.Endpoint{TokenURL: ts.URL}}

	t.Run("delivers token once", func(t *testing.T) {
		h := NewOAuthHandler(config, "state-1")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, callbackRequest(url.Values{"state": {"state-1"}, "code": {"good-code"}}))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Error() != nil || result.Token.AccessToken != "access" {
			t.Fatalf("unexpected result %+v", result)
		}

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, callbackRequest(url.Values{"state": {"state-1"}, "code": {"good-code"}}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got %d", rec.Code)
		}
	})

	t.Run("reports state mismatch", func(t *testing.T) {
		h := NewOAuthHandler(config, "state-2")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, callbackRequest(url.Values{"state": {"wrong"}, "code": {"good-code"}}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}

		result := <-h.Result()
		if result.Error() == nil {
			t.Error("expected error result")
		}
	})

	if got := NewOAuthHandler(config, "s").Routes(); len(got) != 1 || got[0] != "/callback" {
		t.Errorf("unexpected routes %v", got)
	}
}
