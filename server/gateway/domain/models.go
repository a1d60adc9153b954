package domain

import "time"

const DefaultContentType = "application/octet-stream"

// StoredObject is one uploaded file as the object store reports it.
type StoredObject struct {
	Key          string
	Name         string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

type FileListingEntry struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Size       int64   `json:"size"`
	Type       string  `json:"type"`
	Preview    *string `json:"preview"`
	URL        string  `json:"url"`
	UploadedAt string  `json:"uploadedAt"`
}

type UploadResult struct {
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	Type      string `json:"type"`
	Folder    string `json:"folder"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// UploadedEvent is published after a successful upload.
type UploadedEvent struct {
	Folder     string    `json:"folder"`
	Key        string    `json:"key"`
	Filename   string    `json:"filename"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}
