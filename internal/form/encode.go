package form

import (
	"encoding/base64"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Katlearn/cablevision-form/internal/models"
)

// Encode converts a picked file into its transmittable form. A missing MIME
// type is sniffed from the content.
func Encode(f *models.File) models.EncodedFile {
	mt := f.MimeType
	if mt == "" {
		mt = mimetype.Detect(f.Data).String()
	}
	return models.EncodedFile{
		Base64:   base64.StdEncoding.EncodeToString(f.Data),
		FileName: f.Name,
		MimeType: mt,
	}
}
