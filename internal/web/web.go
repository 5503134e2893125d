// Package web holds the pages, the listing template and the static
// assets served by the front end.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"msgboard/relay/internal/types"
)

//go:embed pages/*.html
var pagesFS embed.FS

//go:embed assets
var assetsFS embed.FS

const (
	PageIndex   = "index.html"
	PageMessage = "message.html"
	PageError   = "error.html"

	pageMessages = "messages.html"
)

// Renderer writes pages, the message listing and static files.
type Renderer struct {
	listing *template.Template
	static  fs.FS
}

// New builds a Renderer. With staticDir empty the embedded assets are
// served; otherwise files are looked up under staticDir.
func New(staticDir string) (*Renderer, error) {
	listing, err := template.ParseFS(pagesFS, "pages/"+pageMessages)
	if err != nil {
		return nil, fmt.Errorf("parse listing template: %w", err)
	}
	var static fs.FS
	if staticDir != "" {
		info, err := os.Stat(staticDir)
		if err != nil {
			return nil, fmt.Errorf("static dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("static dir %s is not a directory", staticDir)
		}
		static = os.DirFS(staticDir)
	} else {
		static, err = fs.Sub(assetsFS, "assets")
		if err != nil {
			return nil, err
		}
	}
	return &Renderer{listing: listing, static: static}, nil
}

// Page writes one of the fixed HTML pages with the given status.
func (r *Renderer) Page(w http.ResponseWriter, name string, status int) error {
	b, err := pagesFS.ReadFile("pages/" + name)
	if err != nil {
		return fmt.Errorf("page %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(b)
	return err
}

// Listing renders the stored messages. A nil or empty document renders
// the "no messages" state.
func (r *Renderer) Listing(w io.Writer, doc types.Document) error {
	data := struct{ Entries []types.Entry }{}
	if len(doc) > 0 {
		data.Entries = doc.Entries()
	}
	return r.listing.Execute(w, data)
}

// ServeListing renders into a buffer first so a template error can still
// become a 500.
func (r *Renderer) ServeListing(w http.ResponseWriter, doc types.Document) error {
	var buf bytes.Buffer
	if err := r.Listing(&buf, doc); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf.Bytes())
	return err
}

// ErrNoAsset reports that no regular file matches the request path.
var ErrNoAsset = errors.New("asset not found")

// Static writes the file at urlPath. The type comes from the extension,
// text/plain when unknown.
func (r *Renderer) Static(w http.ResponseWriter, urlPath string) error {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" || !fs.ValidPath(name) {
		return ErrNoAsset
	}
	info, err := fs.Stat(r.static, name)
	if err != nil || !info.Mode().IsRegular() {
		return ErrNoAsset
	}
	b, err := fs.ReadFile(r.static, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	ctype := mime.TypeByExtension(path.Ext(name))
	if ctype == "" {
		ctype = "text/plain"
	}
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(b)
	return err
}
