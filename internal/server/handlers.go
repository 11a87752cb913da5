package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/marginalia-app/marginalia/internal/service"
)

const maxUploadSize = 10 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "expected multipart form with a 'pdf' file field")
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "missing 'pdf' file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "failed to read uploaded file")
		return
	}

	doc, err := s.svc.Upload(r.Context(), UserID(r.Context()), header.Filename, content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "PDF uploaded successfully",
		"pdf":     doc,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.List(r.Context(), UserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if views == nil {
		views = []service.DocumentView{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Get(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), UserID(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "PDF deleted successfully"})
}

func (s *Server) handleAddHighlight(w http.ResponseWriter, r *http.Request) {
	var in service.HighlightInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid JSON body")
		return
	}

	h, err := s.svc.AddHighlight(r.Context(), UserID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "Highlight added successfully",
		"highlight": h,
	})
}

func (s *Server) handleUpdateHighlight(w http.ResponseWriter, r *http.Request) {
	var upd service.HighlightUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid JSON body")
		return
	}

	h, err := s.svc.UpdateHighlight(r.Context(), UserID(r.Context()), r.PathValue("id"), r.PathValue("highlightId"), upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Highlight updated successfully",
		"highlight": h,
	})
}

func (s *Server) handleDeleteHighlight(w http.ResponseWriter, r *http.Request) {
	err := s.svc.DeleteHighlight(r.Context(), UserID(r.Context()), r.PathValue("id"), r.PathValue("highlightId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Highlight deleted successfully"})
}

func (s *Server) handleGenerateAnnotated(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.GenerateAnnotated(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Annotated PDF generated successfully",
		"url":     res.URL,
		"pdf":     res.Document,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	b, filename, err := s.svc.ExportFresh(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePDF(w, filename, b)
}

func (s *Server) handleExportAnnotated(w http.ResponseWriter, r *http.Request) {
	b, filename, err := s.svc.ExportAnnotated(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePDF(w, filename, b)
}

func writePDF(w http.ResponseWriter, filename string, b []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(b)))
	_, _ = w.Write(b)
}
