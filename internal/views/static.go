package views

import (
	"embed"
	"net/http"
)

//go:embed static
var staticFiles embed.FS

// Static serves the embedded assets under /static/.
func Static() http.Handler {
	return http.FileServer(http.FS(staticFiles))
}
