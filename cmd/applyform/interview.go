package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Katlearn/cablevision-form/internal/form"
	"github.com/Katlearn/cablevision-form/internal/models"
	"github.com/Katlearn/cablevision-form/internal/signature"
)

const (
	signaturePrompt = "Signature (path to an image of your signature)"
	latitudePrompt  = "Location latitude"
	longitudePrompt = "Location longitude"
)

// interview walks the field table, feeding every answer to the controller
// the way the browser widgets would.
type interview struct {
	p      Prompter
	ctrl   *form.Controller
	canvas *signature.Canvas
	table  *models.Form
	att    form.Attachments
	today  func() time.Time
}

func newInterview(p Prompter, ctrl *form.Controller, canvas *signature.Canvas) *interview {
	return &interview{p: p, ctrl: ctrl, canvas: canvas, table: models.FieldTable(), today: time.Now}
}

func (iv *interview) run(ctx context.Context) (form.Result, error) {
	if err := iv.p.Info(ctx, iv.table.Title+"\n"+iv.table.Subtitle+"\n\n"+iv.table.Intro+"\n"); err != nil {
		return form.Result{}, err
	}
	for _, f := range iv.table.Fields {
		if err := iv.ask(ctx, f); err != nil {
			return form.Result{}, err
		}
		if f.Name == models.FieldLandmark && iv.ctrl.MapEnabled() {
			if err := iv.askMarker(ctx); err != nil {
				return form.Result{}, err
			}
		}
	}

	for {
		err := iv.ctrl.Snapshot().Validate()
		if err == nil {
			break
		}
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			return form.Result{}, err
		}
		for _, f := range iv.table.Fields {
			problem, bad := verr.Fields[f.Name]
			if !bad {
				continue
			}
			if err := iv.p.Info(ctx, fmt.Sprintf("%s %s.", f.Label, problem)); err != nil {
				return form.Result{}, err
			}
			if err := iv.ask(ctx, f); err != nil {
				return form.Result{}, err
			}
		}
	}

	if err := iv.askSignature(ctx); err != nil {
		return form.Result{}, err
	}
	return iv.ctrl.Submit(ctx, iv.att), nil
}

func (iv *interview) ask(ctx context.Context, f models.FieldDefinition) error {
	switch f.Type {
	case models.TypeRadio:
		i, err := iv.p.Select(ctx, f.Label, displays(f.Options))
		if err != nil {
			return err
		}
		if i < 0 || i >= len(f.Options) {
			return fmt.Errorf("%s: no option selected", f.Name)
		}
		return iv.ctrl.FieldChange(form.Change{Name: f.Name, Value: f.Options[i].Value})

	case models.TypeCheckbox:
		picked, err := iv.p.MultiSelect(ctx, f.Label, displays(f.Options))
		if err != nil {
			return err
		}
		if err := iv.ctrl.FieldChange(form.Change{Name: f.Name}); err != nil {
			return err
		}
		for _, i := range picked {
			if i < 0 || i >= len(f.Options) {
				continue
			}
			if err := iv.ctrl.FieldChange(form.Change{Name: f.Name, Value: f.Options[i].Value, Checkbox: true, Checked: true}); err != nil {
				return err
			}
		}
		return nil

	case models.TypeFile:
		if !iv.ctrl.UploadsEnabled() {
			return nil
		}
		return iv.askFile(ctx, f)
	}

	def := iv.ctrl.Snapshot().Fields[f.Name]
	if def == "" && f.Type == models.TypeDate {
		def = iv.today().Format("2006-01-02")
	}
	v, err := iv.p.Input(ctx, f.Label, def, f.Required)
	if err != nil {
		return err
	}
	return iv.ctrl.FieldChange(form.Change{Name: f.Name, Value: strings.TrimSpace(v)})
}

func (iv *interview) askFile(ctx context.Context, f models.FieldDefinition) error {
	for {
		path, err := iv.p.Input(ctx, f.Label+" (file path, optional)", "", false)
		if err != nil {
			return err
		}
		if path = strings.TrimSpace(path); path == "" {
			return nil
		}
		file, err := readFile(path)
		if err != nil {
			if err := iv.p.Info(ctx, err.Error()); err != nil {
				return err
			}
			continue
		}
		switch f.Name {
		case "proofBilling":
			iv.att.ProofBilling = file
		case "validId":
			iv.att.ValidID = file
		}
		return nil
	}
}

func (iv *interview) askMarker(ctx context.Context) error {
	pos := iv.ctrl.Snapshot().Marker
	lat, err := iv.askFloat(ctx, latitudePrompt, pos.Lat)
	if err != nil {
		return err
	}
	lng, err := iv.askFloat(ctx, longitudePrompt, pos.Lng)
	if err != nil {
		return err
	}
	return iv.ctrl.MarkerDragEnd(models.Coordinate{Lat: lat, Lng: lng})
}

func (iv *interview) askFloat(ctx context.Context, message string, def float64) (float64, error) {
	for {
		v, err := iv.p.Input(ctx, message, strconv.FormatFloat(def, 'f', -1, 64), true)
		if err != nil {
			return 0, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f, nil
		}
		if err := iv.p.Info(ctx, fmt.Sprintf("%q is not a number.", v)); err != nil {
			return 0, err
		}
	}
}

func (iv *interview) askSignature(ctx context.Context) error {
	for {
		path, err := iv.p.Input(ctx, signaturePrompt, "", true)
		if err != nil {
			return err
		}
		problem := iv.loadSignature(strings.TrimSpace(path))
		if problem == "" {
			return nil
		}
		if err := iv.p.Info(ctx, problem); err != nil {
			return err
		}
	}
}

func (iv *interview) loadSignature(path string) string {
	fh, err := os.Open(path)
	if err != nil {
		return err.Error()
	}
	defer fh.Close()
	if err := iv.canvas.LoadImage(fh); err != nil {
		return err.Error()
	}
	if iv.canvas.IsEmpty() {
		return "That image has no visible signature."
	}
	return ""
}

func readFile(path string) (*models.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	return &models.File{Name: filepath.Base(path), Data: data}, nil
}

func displays(opts []models.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Display()
	}
	return out
}
