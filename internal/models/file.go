package models

// File is a document picked by the customer. It is handed to a submission
// and never kept afterwards.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// EncodedFile is the transmittable form of a File: base64 content without
// any data-URL prefix.
type EncodedFile struct {
	Base64   string
	FileName string
	MimeType string
}
