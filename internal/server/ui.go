package server

import (
	"io/fs"
	"net/http"
	"strings"
)

// viewerFS holds the embedded echo viewer. Set via SetUI before creating the server.
var viewerFS fs.FS

// SetUI sets the embedded filesystem for the browser viewer.
func SetUI(fsys fs.FS) {
	viewerFS = fsys
}

// viewerHandler serves the static viewer. Paths without a file extension
// fall back to index.html so the viewer can route client-side.
func viewerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if viewerFS == nil {
			writeError(w, http.StatusNotFound, "not_found", "viewer not embedded in this build")
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}
		if _, err := fs.Stat(viewerFS, path); err != nil {
			if strings.Contains(path[strings.LastIndex(path, "/")+1:], ".") {
				http.NotFound(w, r)
				return
			}
			path = "index.html"
		}

		http.ServeFileFS(w, r, viewerFS, path)
	}
}
