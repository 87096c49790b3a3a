// Package form holds the application form controller: field state, the
// "how did you know about us" accumulator, the map marker, and the
// submission pipeline that relays a record to the mail service.
package form

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Katlearn/cablevision-form/internal/models"
)

var (
	ErrUnknownField  = errors.New("form: unknown field")
	ErrNotCheckbox   = errors.New("form: field is not a checkbox group")
	ErrUnknownOption = errors.New("form: unknown option")
	ErrMapDisabled   = errors.New("form: map is disabled")
	ErrNoMailer      = errors.New("form: mailer is required")
)

// SignaturePad is the signature widget as seen by the controller.
type SignaturePad interface {
	IsEmpty() bool
	Export() (string, error)
	Clear()
}

// Trimmer is implemented by signature widgets that can crop blank margins.
type Trimmer interface {
	ExportTrimmed() (string, error)
}

// Uploader stores an encoded file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, f models.EncodedFile) (string, error)
}

// Mailer delivers a Submission Record.
type Mailer interface {
	Send(ctx context.Context, rec models.Record) error
}

// Change is a single field-change notification from the presentation layer.
// Checked is only meaningful when Checkbox is set.
type Change struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Checkbox bool   `json:"checkbox,omitempty"`
	Checked  bool   `json:"checked,omitempty"`
}

// Attachments are the documents picked at submission time. Nil means no
// file was chosen.
type Attachments struct {
	ProofBilling *models.File
	ValidID      *models.File
}

// Options selects the collaborators of a Controller. A nil Uploader turns
// uploads off; MapEnabled says whether a map widget feeds marker moves.
type Options struct {
	Signature  SignaturePad
	Uploader   Uploader
	Mailer     Mailer
	MapEnabled bool
	Logger     *log.Logger
}

// State is a copy of the controller's current values.
type State struct {
	Fields         map[string]string `json:"fields"`
	HowKnow        []string          `json:"howKnow"`
	Marker         models.Coordinate `json:"marker"`
	Dirty          bool              `json:"dirty"`
	MapEnabled     bool              `json:"mapEnabled"`
	UploadsEnabled bool              `json:"uploadsEnabled"`
}

type Controller struct {
	mu      sync.Mutex
	fields  map[string]string
	howKnow OptionSet
	marker  models.Coordinate
	dirty   bool

	submitting atomic.Bool

	signature  SignaturePad
	uploader   Uploader
	mailer     Mailer
	mapEnabled bool
	logger     *log.Logger
}

func New(opts Options) (*Controller, error) {
	if opts.Mailer == nil {
		return nil, ErrNoMailer
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		fields:     make(map[string]string),
		marker:     models.DefaultMarker,
		signature:  opts.Signature,
		uploader:   opts.Uploader,
		mailer:     opts.Mailer,
		mapEnabled: opts.MapEnabled,
		logger:     logger,
	}, nil
}

// FieldChange applies a field-change notification. Plain fields are last
// write wins; checkbox changes on howKnow add or remove one option.
func (c *Controller) FieldChange(ch Change) error {
	if !models.IsRecordField(ch.Name) {
		return ErrUnknownField
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ch.Name == models.FieldHowKnow {
		if ch.Checkbox {
			if !isHowKnowOption(ch.Value) {
				return ErrUnknownOption
			}
			if ch.Checked {
				c.howKnow.Add(ch.Value)
			} else {
				c.howKnow.Remove(ch.Value)
			}
			c.dirty = true
			return nil
		}
		return c.replaceHowKnow(ch.Value)
	}
	if ch.Checkbox {
		return ErrNotCheckbox
	}

	c.fields[ch.Name] = ch.Value
	c.dirty = true
	return nil
}

// replaceHowKnow sets the whole group from its joined form.
func (c *Controller) replaceHowKnow(joined string) error {
	var next OptionSet
	for _, tok := range strings.Split(joined, optionSeparator) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if !isHowKnowOption(tok) {
			return ErrUnknownOption
		}
		next.Add(tok)
	}
	c.howKnow = next
	c.dirty = true
	return nil
}

func isHowKnowOption(v string) bool {
	for _, o := range models.HowKnowOptions {
		if o == v {
			return true
		}
	}
	return false
}

// MarkerDragEnd moves the marker. Coordinates are not range checked.
func (c *Controller) MarkerDragEnd(pos models.Coordinate) error {
	if !c.mapEnabled {
		return ErrMapDisabled
	}
	c.mu.Lock()
	c.marker = pos
	c.dirty = true
	c.mu.Unlock()
	return nil
}

func (c *Controller) ClearSignature() {
	if c.signature != nil {
		c.signature.Clear()
	}
}

func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

func (c *Controller) MapEnabled() bool     { return c.mapEnabled }
func (c *Controller) UploadsEnabled() bool { return c.uploader != nil }

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	fields := make(map[string]string, len(c.fields))
	for k, v := range c.fields {
		fields[k] = v
	}
	return State{
		Fields:         fields,
		HowKnow:        c.howKnow.Values(),
		Marker:         c.marker,
		Dirty:          c.dirty,
		MapEnabled:     c.mapEnabled,
		UploadsEnabled: c.uploader != nil,
	}
}

// Validate checks the snapshot against the required markers and formats of
// the field table. It returns a *models.ValidationError.
func (s State) Validate() error {
	fields := make(map[string]string, len(s.Fields)+1)
	for k, v := range s.Fields {
		fields[k] = v
	}
	fields[models.FieldHowKnow] = strings.Join(s.HowKnow, optionSeparator)
	return models.ApplicationFromFields(fields).Validate()
}

// Submit runs the submission pipeline: signature check, signature export,
// document uploads, record assembly and delivery. Only one submission runs
// at a time per controller.
func (c *Controller) Submit(ctx context.Context, att Attachments) Result {
	if !c.submitting.CompareAndSwap(false, true) {
		return Result{Status: StatusBusy, Message: MsgBusy}
	}
	defer c.submitting.Store(false)

	if c.signature == nil || c.signature.IsEmpty() {
		return Result{Status: StatusRejected, Message: MsgMissingSignature}
	}

	sig, err := c.exportSignature()
	if err != nil {
		c.logger.Printf("Warning: signature export failed: %v", err)
		return Result{Status: StatusFailed, Message: MsgSignatureExport}
	}

	proofURL, validURL := c.uploadAttachments(ctx, att)

	rec := c.assemble(sig, proofURL, validURL)
	if err := c.mailer.Send(ctx, rec); err != nil {
		c.logger.Printf("Error sending email: %v", err)
		return Result{Status: StatusFailed, Message: MsgDeliveryFailed, Record: &rec}
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	c.logger.Printf("Application from %s %s delivered", rec.FirstName, rec.LastName)
	return Result{Status: StatusSent, Message: MsgSent, Record: &rec}
}

func (c *Controller) exportSignature() (string, error) {
	if t, ok := c.signature.(Trimmer); ok {
		data, err := t.ExportTrimmed()
		switch {
		case err != nil:
			c.logger.Printf("Warning: trimmed signature unavailable, using raw canvas: %v", err)
		case data == "":
			c.logger.Printf("Warning: trimmed signature export was empty, using raw canvas")
		default:
			return data, nil
		}
	}
	data, err := c.signature.Export()
	if err != nil {
		return "", err
	}
	if data == "" {
		return "", errors.New("form: signature export returned no image")
	}
	return data, nil
}

func (c *Controller) uploadAttachments(ctx context.Context, att Attachments) (proofURL, validURL string) {
	var g errgroup.Group
	g.Go(func() error {
		proofURL = c.upload(ctx, "proofBilling", att.ProofBilling)
		return nil
	})
	g.Go(func() error {
		validURL = c.upload(ctx, "validId", att.ValidID)
		return nil
	})
	_ = g.Wait()
	return proofURL, validURL
}

// upload never fails the submission: any problem yields an empty URL.
func (c *Controller) upload(ctx context.Context, field string, f *models.File) string {
	if f == nil || c.uploader == nil {
		return ""
	}
	url, err := c.uploader.Upload(ctx, Encode(f))
	if err != nil {
		c.logger.Printf("Warning: upload of %s (%s) failed: %v", field, f.Name, err)
		return ""
	}
	return url
}

func (c *Controller) assemble(signature, proofURL, validURL string) models.Record {
	c.mu.Lock()
	fields := make(map[string]string, len(c.fields)+1)
	for k, v := range c.fields {
		fields[k] = v
	}
	fields[models.FieldHowKnow] = c.howKnow.Join()
	marker := c.marker
	c.mu.Unlock()

	rec := models.NewRecord(fields, marker)
	rec.Signature = signature
	rec.ProofBillingURL = proofURL
	rec.ValidIDURL = validURL
	return rec
}
