package api

import (
	"net/http"

	"msgboard/relay/internal/web"
)

func NewRouter(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.HandleSubmit(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// POST is accepted on any path.
		if r.Method == http.MethodPost {
			h.HandleSubmit(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD, POST")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		switch r.URL.Path {
		case "/":
			h.HandlePage(w, r, web.PageIndex)
		case "/message":
			h.HandlePage(w, r, web.PageMessage)
		case "/messages":
			h.HandleListMessages(w, r)
		default:
			h.HandleStatic(w, r)
		}
	})

	return mux
}
