package models

// StoredFile is the metadata kept next to a hosted upload blob.
type StoredFile struct {
	ID          string `json:"_id,omitempty"`
	Key         string `json:"key"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	CreatedAt   string `json:"createdAt"`
}
