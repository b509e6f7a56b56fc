package apitest

import (
	"net/http"
	"net/http/httptest"
)

// NewRouter registers the product routes and returns the handler with
// middleware.
func NewRouter(b *Backend) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/Products", b.listHandler)
	mux.HandleFunc("POST /api/Products", b.createHandler)
	mux.HandleFunc("PUT /api/Products/{id}", b.updateHandler)
	mux.HandleFunc("DELETE /api/Products/{id}", b.deleteHandler)
	return WithRequestID(WithLogging(mux))
}

// Serve starts an httptest server for b. The caller closes it.
func Serve(b *Backend) *httptest.Server {
	return httptest.NewServer(NewRouter(b))
}
