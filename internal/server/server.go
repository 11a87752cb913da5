// Package server exposes the PDF service over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/marginalia-app/marginalia/internal/service"
)

type Server struct {
	svc *service.PDFService
	log *slog.Logger
}

func New(svc *service.PDFService, log *slog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

// Routes returns the complete handler: routing plus the CORS, logging and
// auth middleware. Preflight requests bypass auth; everything else requires
// an X-User-ID.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /pdfs/upload", s.handleUpload)
	mux.HandleFunc("GET /pdfs", s.handleList)
	mux.HandleFunc("GET /pdfs/{id}", s.handleGet)
	mux.HandleFunc("DELETE /pdfs/{id}", s.handleDelete)
	mux.HandleFunc("POST /pdfs/{id}/highlights", s.handleAddHighlight)
	mux.HandleFunc("PUT /pdfs/{id}/highlights/{highlightId}", s.handleUpdateHighlight)
	mux.HandleFunc("DELETE /pdfs/{id}/highlights/{highlightId}", s.handleDeleteHighlight)
	mux.HandleFunc("POST /pdfs/{id}/generate-annotated", s.handleGenerateAnnotated)
	mux.HandleFunc("GET /pdfs/{id}/export", s.handleExport)
	mux.HandleFunc("GET /pdfs/{id}/export/annotated", s.handleExportAnnotated)

	return CORS(LogRequests(s.log, RequireUser(mux)))
}
