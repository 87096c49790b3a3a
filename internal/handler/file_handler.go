package handler

import (
	"errors"
	"log"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Katlearn/cablevision-form/internal/service"
)

// FileHandler implements the document upload endpoint on top of the blob
// store.
type FileHandler struct {
	svc *service.FileService
}

func NewFileHandler(svc *service.FileService) *FileHandler {
	return &FileHandler{svc: svc}
}

// Upload takes a urlencoded body with file (base64), fileName and mimeType
// and replies with {"fileUrl": ...}.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxUploadSize)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	link, f, err := h.svc.Store(r.Context(), r.PostForm.Get("file"), r.PostForm.Get("fileName"), r.PostForm.Get("mimeType"))
	if err != nil {
		if errors.Is(err, service.ErrBadEncoding) || errors.Is(err, service.ErrEmptyFile) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Error storing upload: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	log.Printf("Stored %s (%s, %d bytes) as %s", f.FileName, f.ContentType, f.Size, f.Key)
	writeJSON(w, http.StatusOK, map[string]string{"fileUrl": link})
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	data, f, err := h.svc.Open(r.Context(), key, r.URL.Query().Get("token"))
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "invalid or expired link")
		return
	case errors.Is(err, service.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "file not found")
		return
	case err != nil:
		log.Printf("Error loading file %s: %v", key, err)
		writeError(w, http.StatusInternalServerError, "failed to load file")
		return
	}

	etag := strconv.Quote(f.Checksum)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": f.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	err := h.svc.Remove(r.Context(), key, r.URL.Query().Get("token"))
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusForbidden, "invalid or expired link")
		return
	case errors.Is(err, service.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "file not found")
		return
	case err != nil:
		log.Printf("Error deleting file %s: %v", key, err)
		writeError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": key})
}
