package handler

import (
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Katlearn/cablevision-form/internal/form"
	"github.com/Katlearn/cablevision-form/internal/models"
	"github.com/Katlearn/cablevision-form/internal/session"
	"github.com/Katlearn/cablevision-form/internal/signature"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"has": func(values url.Values, name, v string) bool {
		for _, got := range values[name] {
			if got == v {
				return true
			}
		}
		return false
	},
}).ParseFS(templateFS, "templates/*.html"))

type FormHandler struct {
	table          *models.Form
	newForm        session.Factory
	mapEnabled     bool
	uploadsEnabled bool
	width, height  int
}

// NewFormHandler serves the browser form. Every POST /apply gets a fresh
// controller from newForm.
func NewFormHandler(newForm session.Factory, mapEnabled, uploadsEnabled bool, width, height int) *FormHandler {
	return &FormHandler{
		table:          models.FieldTable(),
		newForm:        newForm,
		mapEnabled:     mapEnabled,
		uploadsEnabled: uploadsEnabled,
		width:          width,
		height:         height,
	}
}

type pageData struct {
	Form           *models.Form
	MapEnabled     bool
	UploadsEnabled bool
	Width, Height  int
	Marker         models.Coordinate
	Values         url.Values
	Errors         map[string]string
	Message        string
}

type resultData struct {
	Title  string
	Result form.Result
}

func (h *FormHandler) page(values url.Values, errs map[string]string, msg string) pageData {
	marker := models.DefaultMarker
	if lat, err := strconv.ParseFloat(values.Get("markerLat"), 64); err == nil {
		marker.Lat = lat
	}
	if lng, err := strconv.ParseFloat(values.Get("markerLng"), 64); err == nil {
		marker.Lng = lng
	}
	return pageData{
		Form:           h.table,
		MapEnabled:     h.mapEnabled,
		UploadsEnabled: h.uploadsEnabled,
		Width:          h.width,
		Height:         h.height,
		Marker:         marker,
		Values:         values,
		Errors:         errs,
		Message:        msg,
	}
}

func (h *FormHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "form.html", h.page(url.Values{}, nil, ""))
}

func (h *FormHandler) Apply(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxUploadSize)
	if err := parseForm(r); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	ctrl, canvas, err := h.newForm()
	if err != nil {
		log.Printf("Error creating form controller: %v", err)
		writeError(w, http.StatusInternalServerError, "form unavailable")
		return
	}

	if errs := replay(ctrl, canvas, r.PostForm); len(errs) > 0 {
		h.reject(w, r, errs)
		return
	}
	// a missing signature is reported by Submit ahead of any field error
	if !canvas.IsEmpty() {
		if err := ctrl.Snapshot().Validate(); err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				h.reject(w, r, verr.Fields)
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	var att form.Attachments
	if ctrl.UploadsEnabled() {
		if att, err = attachments(r); err != nil {
			writeError(w, http.StatusBadRequest, "could not read attached files")
			return
		}
	}

	res := ctrl.Submit(r.Context(), att)
	status := resultStatus(res)
	if wantsJSON(r) {
		writeJSON(w, status, res)
		return
	}
	if res.Status == form.StatusRejected {
		h.render(w, status, "form.html", h.page(r.PostForm, nil, res.Message))
		return
	}
	h.render(w, status, "result.html", resultData{Title: h.table.Title, Result: res})
}

func (h *FormHandler) reject(w http.ResponseWriter, r *http.Request, errs map[string]string) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "invalid application",
			"fields": errs,
		})
		return
	}
	h.render(w, http.StatusUnprocessableEntity, "form.html", h.page(r.PostForm, errs, "Please correct the highlighted fields."))
}

func (h *FormHandler) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
	}
}

// replay feeds submitted values into ctrl as if each widget had fired its
// change event. It returns per-field problems.
func replay(ctrl *form.Controller, canvas *signature.Canvas, values url.Values) map[string]string {
	errs := map[string]string{}
	for _, name := range models.RecordFields {
		got, ok := values[name]
		if !ok {
			continue
		}
		if name == models.FieldHowKnow {
			for _, v := range got {
				if err := ctrl.FieldChange(form.Change{Name: name, Value: v, Checkbox: true, Checked: true}); err != nil {
					errs[name] = "contains an unknown option"
				}
			}
			continue
		}
		if err := ctrl.FieldChange(form.Change{Name: name, Value: got[0]}); err != nil {
			errs[name] = err.Error()
		}
	}

	if ctrl.MapEnabled() && values.Get("markerLat") != "" {
		lat, latErr := strconv.ParseFloat(values.Get("markerLat"), 64)
		lng, lngErr := strconv.ParseFloat(values.Get("markerLng"), 64)
		if latErr != nil || lngErr != nil {
			errs["marker"] = "must be a pair of numbers"
		} else if err := ctrl.MarkerDragEnd(models.Coordinate{Lat: lat, Lng: lng}); err != nil {
			errs["marker"] = err.Error()
		}
	}

	if sig := values.Get("signature"); sig != "" {
		if err := canvas.Load(sig); err != nil {
			errs["signature"] = "could not read the drawing"
		}
	}
	return errs
}
