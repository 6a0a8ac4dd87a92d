package filestorage

import (
	"mime/multipart"
)

// FileInfo represents information about a stored file
type FileInfo struct {
	Path     string // Path relative to the storage root, used for deletion
	URL      string // Public URL or uploads/ relative path
	Filename string // Original filename
	FileSize int64  // Size in bytes
	MimeType string
}

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	// Save stores an uploaded file under subPath
	Save(fileHeader *multipart.FileHeader, subPath string) (*FileInfo, error)

	// Delete removes a file by its storage path. Missing files are not an error.
	Delete(path string) error
}
