package form

import "github.com/Katlearn/cablevision-form/internal/models"

// Status is the outcome of a submission.
type Status string

const (
	StatusSent     Status = "sent"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
	StatusBusy     Status = "busy"
)

// Messages shown to the customer.
const (
	MsgSent             = "Form submitted and email sent!"
	MsgMissingSignature = "Please provide a signature before submitting."
	MsgSignatureExport  = "We could not read your signature. Please sign again."
	MsgDeliveryFailed   = "Failed to send email. Please try again."
	MsgBusy             = "A submission is already in progress."
)

// Result is what a submission reports back to the presentation layer.
// Record is set whenever delivery was attempted.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Record  *models.Record `json:"-"`
}

func (r Result) OK() bool { return r.Status == StatusSent }
