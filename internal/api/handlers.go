package api

import (
    "errors"
    "io"
    "log/slog"
    "net/http"

    "msgboard/relay/internal/types"
    "msgboard/relay/internal/web"
)

// MaxPayload is the largest body that still fits one UDP datagram.
const MaxPayload = 65507

// Reader is the read side of the message store.
type Reader interface {
    ReadAll() (types.Document, bool)
}

// Sender hands a raw payload to the ingest listener.
type Sender interface {
    Send(payload []byte) error
}

// Pages renders the HTML pages and static assets; *web.Renderer is the
// production implementation.
type Pages interface {
    Page(w http.ResponseWriter, name string, status int) error
    ServeListing(w http.ResponseWriter, doc types.Document) error
    Static(w http.ResponseWriter, urlPath string) error
}

type Handlers struct {
    store Reader
    fwd   Sender
    pages Pages
    log   *slog.Logger
}

func NewHandlers(st Reader, fwd Sender, pages Pages, log *slog.Logger) *Handlers {
    if log == nil {
        log = slog.Default()
    }
    return &Handlers{store: st, fwd: fwd, pages: pages, log: log}
}

// HandleSubmit forwards the request body, unmodified, as one datagram and
// redirects to the form page. The redirect does not depend on delivery.
func (h *Handlers) HandleSubmit(w http.ResponseWriter, r *http.Request) {
    if r.ContentLength < 0 {
        metricSubmissions.WithLabelValues("no_length").Inc()
        http.Error(w, "Content-Length required", http.StatusLengthRequired)
        return
    }
    if r.ContentLength > MaxPayload {
        metricSubmissions.WithLabelValues("too_large").Inc()
        http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
        return
    }

    body := make([]byte, r.ContentLength)
    if _, err := io.ReadFull(r.Body, body); err != nil {
        metricSubmissions.WithLabelValues("short_body").Inc()
        h.log.Warn("read submission body", "err", err, "content_length", r.ContentLength)
        http.Error(w, "incomplete body", http.StatusBadRequest)
        return
    }
    h.log.Debug("submission received", "path", r.URL.Path, "bytes", len(body))

    if err := h.fwd.Send(body); err != nil {
        metricSubmissions.WithLabelValues("forward_error").Inc()
        h.log.Error("forward submission", "err", err)
    } else {
        metricSubmissions.WithLabelValues("forwarded").Inc()
    }

    http.Redirect(w, r, "/message", http.StatusFound)
}

func (h *Handlers) HandlePage(w http.ResponseWriter, r *http.Request, name string) {
    if err := h.pages.Page(w, name, http.StatusOK); err != nil {
        h.log.Error("write page", "page", name, "err", err)
    }
}

// HandleListMessages renders whatever the store holds. A missing or
// corrupt document shows as an empty listing.
func (h *Handlers) HandleListMessages(w http.ResponseWriter, r *http.Request) {
    doc, ok := h.store.ReadAll()
    if !ok {
        doc = nil
    }
    if err := h.pages.ServeListing(w, doc); err != nil {
        h.log.Error("render listing", "err", err)
        http.Error(w, "internal error", http.StatusInternalServerError)
    }
}

func (h *Handlers) HandleStatic(w http.ResponseWriter, r *http.Request) {
    err := h.pages.Static(w, r.URL.Path)
    if err == nil {
        return
    }
    if !errors.Is(err, web.ErrNoAsset) {
        h.log.Error("serve static", "path", r.URL.Path, "err", err)
        http.Error(w, "internal error", http.StatusInternalServerError)
        return
    }
    if err := h.pages.Page(w, web.PageError, http.StatusNotFound); err != nil {
        h.log.Error("write page", "page", web.PageError, "err", err)
    }
}
