package api

import (
    "context"
    "errors"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "path/filepath"
    "strings"
    "sync"
    "testing"
    "time"

    "msgboard/relay/internal/forward"
    "msgboard/relay/internal/ingest"
    "msgboard/relay/internal/store"
    "msgboard/relay/internal/types"
    "msgboard/relay/internal/web"
)

type mockReader struct {
    doc types.Document
    ok  bool
}

func (m *mockReader) ReadAll() (types.Document, bool) { return m.doc, m.ok }

type mockSender struct {
    mu   sync.Mutex
    sent [][]byte
    err  error
}

func (m *mockSender) Send(p []byte) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.sent = append(m.sent, append([]byte(nil), p...))
    return m.err
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestServer(t *testing.T, st Reader, fwd Sender) *httptest.Server {
    t.Helper()
    pages, err := web.New("")
    if err != nil { t.Fatalf("pages: %v", err) }
    h := NewHandlers(st, fwd, pages, quiet())
    srv := httptest.NewServer(LogMiddleware(quiet(), NewRouter(h)))
    t.Cleanup(srv.Close)
    return srv
}

func noRedirect() *http.Client {
    return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func TestSubmitForwardsBodyAndRedirects(t *testing.T) {
    fwd := &mockSender{}
    srv := newTestServer(t, &mockReader{}, fwd)

    for _, path := range []string{"/message", "/anything/else"} {
        resp, err := noRedirect().Post(srv.URL+path, "application/x-www-form-urlencoded", strings.NewReader("name=Ada&msg=Hello"))
        if err != nil { t.Fatalf("request: %v", err) }
        resp.Body.Close()
        if resp.StatusCode != http.StatusFound {
            t.Fatalf("expected 302, got %d", resp.StatusCode)
        }
        if loc := resp.Header.Get("Location"); loc != "/message" {
            t.Fatalf("expected Location /message, got %q", loc)
        }
    }
    if len(fwd.sent) != 2 || string(fwd.sent[0]) != "name=Ada&msg=Hello" {
        t.Fatalf("unexpected forwarded payloads: %q", fwd.sent)
    }
}

func TestSubmitRedirectsEvenWhenForwardFails(t *testing.T) {
    srv := newTestServer(t, &mockReader{}, &mockSender{err: errors.New("boom")})

    resp, err := noRedirect().Post(srv.URL+"/message", "application/x-www-form-urlencoded", strings.NewReader("a=1"))
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusFound {
        t.Fatalf("expected 302, got %d", resp.StatusCode)
    }
}

func TestSubmitWithoutContentLength(t *testing.T) {
    fwd := &mockSender{}
    srv := newTestServer(t, &mockReader{}, fwd)

    // A reader of unknown size makes the client use chunked encoding.
    pr, pw := io.Pipe()
    go func() {
        pw.Write([]byte("a=1"))
        pw.Close()
    }()
    resp, err := noRedirect().Post(srv.URL+"/message", "application/x-www-form-urlencoded", pr)
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusLengthRequired {
        t.Fatalf("expected 411, got %d", resp.StatusCode)
    }
    if len(fwd.sent) != 0 {
        t.Fatalf("nothing should be forwarded")
    }
}

func TestSubmitShortBody(t *testing.T) {
    pages, _ := web.New("")
    h := NewHandlers(&mockReader{}, &mockSender{}, pages, quiet())

    req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader("abc"))
    req.ContentLength = 10
    rec := httptest.NewRecorder()
    h.HandleSubmit(rec, req)
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rec.Code)
    }
}

func TestSubmitTooLarge(t *testing.T) {
    srv := newTestServer(t, &mockReader{}, &mockSender{})

    resp, err := noRedirect().Post(srv.URL+"/message", "text/plain", strings.NewReader(strings.Repeat("a", MaxPayload+1)))
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusRequestEntityTooLarge {
        t.Fatalf("expected 413, got %d", resp.StatusCode)
    }
}

func TestGetRoutes(t *testing.T) {
    srv := newTestServer(t, &mockReader{doc: types.Document{"2024-01-02T03:04:05.000000": {"username": "Ada"}}, ok: true}, &mockSender{})

    cases := []struct {
        path   string
        status int
        needle string
    }{
        {"/", http.StatusOK, "Message board"},
        {"/message", http.StatusOK, "<form"},
        {"/messages", http.StatusOK, "<dd>Ada</dd>"},
        {"/static/style.css", http.StatusOK, "font-family"},
        {"/missing.png", http.StatusNotFound, "404"},
        {"/healthz", http.StatusOK, "ok"},
    }
    for _, c := range cases {
        resp, err := http.Get(srv.URL + c.path)
        if err != nil { t.Fatalf("GET %s: %v", c.path, err) }
        b, _ := io.ReadAll(resp.Body)
        resp.Body.Close()
        if resp.StatusCode != c.status {
            t.Fatalf("GET %s: expected %d, got %d", c.path, c.status, resp.StatusCode)
        }
        if !strings.Contains(string(b), c.needle) {
            t.Fatalf("GET %s: body missing %q", c.path, c.needle)
        }
        if resp.Header.Get("X-Request-ID") == "" {
            t.Fatalf("GET %s: missing request id", c.path)
        }
    }
}

func TestListMessagesAbsentStore(t *testing.T) {
    srv := newTestServer(t, &mockReader{ok: false}, &mockSender{})

    resp, err := http.Get(srv.URL + "/messages")
    if err != nil { t.Fatalf("request: %v", err) }
    b, _ := io.ReadAll(resp.Body)
    resp.Body.Close()
    if resp.StatusCode != http.StatusOK || !strings.Contains(string(b), "No messages yet.") {
        t.Fatalf("expected empty listing, got %d %q", resp.StatusCode, b)
    }
}

// unreadableAssets fails every static read after the asset lookup.
type unreadableAssets struct {
    *web.Renderer
}

func (unreadableAssets) Static(http.ResponseWriter, string) error {
    return errors.New("read static/style.css: input/output error")
}

func TestStaticReadErrorIsServerError(t *testing.T) {
    pages, err := web.New("")
    if err != nil { t.Fatalf("pages: %v", err) }
    h := NewHandlers(&mockReader{}, &mockSender{}, unreadableAssets{pages}, quiet())
    srv := httptest.NewServer(NewRouter(h))
    defer srv.Close()

    resp, err := http.Get(srv.URL + "/static/style.css")
    if err != nil { t.Fatalf("request: %v", err) }
    b, _ := io.ReadAll(resp.Body)
    resp.Body.Close()
    if resp.StatusCode != http.StatusInternalServerError {
        t.Fatalf("expected 500, got %d %q", resp.StatusCode, b)
    }
}

func TestMethodNotAllowed(t *testing.T) {
    srv := newTestServer(t, &mockReader{}, &mockSender{})

    req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/messages", nil)
    resp, err := http.DefaultClient.Do(req)
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusMethodNotAllowed {
        t.Fatalf("expected 405, got %d", resp.StatusCode)
    }
}

func TestSubmitEndToEnd(t *testing.T) {
    st := store.New(filepath.Join(t.TempDir(), "storage", "data.json"), store.WithLogger(quiet()))
    if err := st.EnsureExists(); err != nil { t.Fatalf("ensure: %v", err) }

    l, err := ingest.Listen("127.0.0.1:0", 1024, st, quiet())
    if err != nil { t.Fatalf("listen: %v", err) }
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    go l.Run(ctx)

    before := time.Now().Add(-time.Millisecond)
    srv := newTestServer(t, st, forward.New(l.Addr().String()))
    resp, err := noRedirect().Post(srv.URL+"/message", "application/x-www-form-urlencoded", strings.NewReader("name=Ada&msg=Hello"))
    if err != nil { t.Fatalf("request: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/message" {
        t.Fatalf("expected 302 to /message, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
    }

    deadline := time.Now().Add(2 * time.Second)
    for {
        doc, ok := st.ReadAll()
        if ok && len(doc) == 1 {
            for ts, rec := range doc {
                if rec["name"] != "Ada" || rec["msg"] != "Hello" || len(rec) != 2 {
                    t.Fatalf("unexpected record %v", rec)
                }
                at, err := time.ParseInLocation(types.TimestampLayout, ts, time.Local)
                if err != nil { t.Fatalf("bad timestamp %q: %v", ts, err) }
                if at.Before(before) {
                    t.Fatalf("timestamp %s precedes the request", ts)
                }
            }
            return
        }
        if time.Now().After(deadline) {
            t.Fatalf("record not stored, doc=%v ok=%v", doc, ok)
        }
        time.Sleep(10 * time.Millisecond)
    }
}
