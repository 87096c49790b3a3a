package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Katlearn/cablevision-form/internal/form"
	"github.com/Katlearn/cablevision-form/internal/models"
)

const maxUploadSize = 12 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// resultStatus maps a submission outcome to an HTTP status code.
func resultStatus(res form.Result) int {
	switch res.Status {
	case form.StatusSent:
		return http.StatusOK
	case form.StatusRejected:
		return http.StatusUnprocessableEntity
	case form.StatusBusy:
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func changeStatus(err error) int {
	switch {
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrNotCheckbox), errors.Is(err, form.ErrUnknownOption):
		return http.StatusUnprocessableEntity
	case errors.Is(err, form.ErrMapDisabled):
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

// attachments reads the optional document pickers from a multipart form.
func attachments(r *http.Request) (form.Attachments, error) {
	var att form.Attachments
	var err error
	if att.ProofBilling, err = formFile(r, "proofBilling"); err != nil {
		return att, err
	}
	if att.ValidID, err = formFile(r, "validId"); err != nil {
		return att, err
	}
	return att, nil
}

func formFile(r *http.Request, field string) (*models.File, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readFile(f, header)
}

func readFile(f multipart.File, header *multipart.FileHeader) (*models.File, error) {
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &models.File{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// parseForm accepts both multipart and urlencoded bodies.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxUploadSize)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}
