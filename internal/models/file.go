package models

// Accepted resume MIME types.
const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWEBP = "image/webp"
)

// FilePayload is a validated resume ready for the analysis engine. Data holds
// the base64 encoded file content.
type FilePayload struct {
	FileName  string `json:"fileName"`
	Data      string `json:"-"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// FileInfo is the part of a payload that stays visible in session snapshots.
type FileInfo struct {
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

func (p FilePayload) Info() FileInfo {
	return FileInfo{
		FileName:  p.FileName,
		MimeType:  p.MimeType,
		SizeBytes: p.SizeBytes,
	}
}
