package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Katlearn/cablevision-form/internal/form"
	"github.com/Katlearn/cablevision-form/internal/models"
	"github.com/Katlearn/cablevision-form/internal/session"
	"github.com/Katlearn/cablevision-form/internal/signature"
)

// SessionHandler exposes a form controller per session so a client can
// forward widget events one at a time.
type SessionHandler struct {
	store *session.Store
}

func NewSessionHandler(store *session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

type sessionView struct {
	ID             string     `json:"id"`
	State          form.State `json:"state"`
	SignatureEmpty bool       `json:"signatureEmpty"`
}

func view(sess *session.Session) sessionView {
	return sessionView{
		ID:             sess.ID,
		State:          sess.Controller.Snapshot(),
		SignatureEmpty: sess.Canvas.IsEmpty(),
	}
}

func (h *SessionHandler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.store.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, view(sess))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view(sess))
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionId")
	h.store.Delete(id)
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (h *SessionHandler) FieldChange(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var ch form.Change
	if err := readJSON(r, &ch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sess.Controller.FieldChange(ch); err != nil {
		writeError(w, changeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view(sess))
}

func (h *SessionHandler) MarkerDragEnd(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var pos models.Coordinate
	if err := readJSON(r, &pos); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sess.Controller.MarkerDragEnd(pos); err != nil {
		writeError(w, changeStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view(sess))
}

func (h *SessionHandler) PutSignature(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		DataURL string `json:"dataUrl"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sess.Canvas.Load(req.DataURL); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, signature.ErrBadDataURL) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view(sess))
}

func (h *SessionHandler) ClearSignature(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	sess.Controller.ClearSignature()
	writeJSON(w, http.StatusOK, view(sess))
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxUploadSize)
	if err := parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	// a missing signature is reported by Submit ahead of any field error
	if !sess.Canvas.IsEmpty() {
		if err := sess.Controller.Snapshot().Validate(); err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
					"error":  "invalid application",
					"fields": verr.Fields,
				})
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	var att form.Attachments
	if sess.Controller.UploadsEnabled() {
		var err error
		if att, err = attachments(r); err != nil {
			writeError(w, http.StatusBadRequest, "could not read attached files")
			return
		}
	}

	res := sess.Controller.Submit(r.Context(), att)
	writeJSON(w, resultStatus(res), res)
}
