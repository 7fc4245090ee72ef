package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"alfredoptarigan/ats-scanner/internal/models"
)

// DefaultMaxFileSize is 5 MiB.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

// FileSource is a file handle with a declared MIME type and size.
type FileSource interface {
	Name() string
	ContentType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

type FileValidator interface {
	Validate(src FileSource) (*models.FilePayload, error)
	MaxSize() int64
}

type fileValidator struct {
	maxSize int64
	allowed map[string]struct{}
}

func NewFileValidator(maxSize int64) FileValidator {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	return &fileValidator{
		maxSize: maxSize,
		allowed: map[string]struct{}{
			models.MimePDF:  {},
			models.MimeJPEG: {},
			models.MimePNG:  {},
			models.MimeWEBP: {},
		},
	}
}

func (v *fileValidator) MaxSize() int64 {
	return v.maxSize
}

// Validate checks type then declared size before touching the content, then
// reads at most maxSize+1 bytes and encodes them as base64.
func (v *fileValidator) Validate(src FileSource) (*models.FilePayload, error) {
	mimeType := NormalizeMimeType(src.ContentType())
	if _, ok := v.allowed[mimeType]; !ok {
		return nil, &ValidationError{
			Kind:    ErrUnsupportedType,
			Message: "Please upload a valid PDF or Image file (JPEG, PNG, WEBP).",
		}
	}

	if src.Size() > v.maxSize {
		return nil, v.tooLarge()
	}

	rc, err := src.Open()
	if err != nil {
		return nil, &ValidationError{Kind: ErrReadFailure, Message: "Failed to read file.", Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, v.maxSize+1))
	if err != nil {
		return nil, &ValidationError{Kind: ErrReadFailure, Message: "Failed to read file.", Err: err}
	}
	if int64(len(data)) > v.maxSize {
		return nil, v.tooLarge()
	}

	return &models.FilePayload{
		FileName:  src.Name(),
		Data:      base64.StdEncoding.EncodeToString(data),
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
	}, nil
}

func (v *fileValidator) tooLarge() error {
	return &ValidationError{
		Kind:    ErrTooLarge,
		Message: fmt.Sprintf("File size must be less than %dMB.", v.maxSize/(1024*1024)),
	}
}

// NormalizeMimeType lowercases a MIME type and strips its parameters.
func NormalizeMimeType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return strings.ToLower(mediaType)
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func needsSniffing(contentType string) bool {
	ct := NormalizeMimeType(contentType)
	return ct == "" || ct == "application/octet-stream"
}

type multipartSource struct {
	header      *multipart.FileHeader
	contentType string
}

// NewMultipartSource adapts an uploaded form file. When the client did not
// declare a useful type the first bytes are sniffed, unless the file is
// already over maxSize.
func NewMultipartSource(header *multipart.FileHeader, maxSize int64) FileSource {
	ct := header.Header.Get("Content-Type")
	if needsSniffing(ct) {
		ct = detectType(header.Filename, header.Size, maxSize, func() (*mimetype.MIME, error) {
			f, err := header.Open()
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return mimetype.DetectReader(f)
		})
	}
	return &multipartSource{header: header, contentType: ct}
}

func (m *multipartSource) Name() string        { return m.header.Filename }
func (m *multipartSource) ContentType() string { return m.contentType }
func (m *multipartSource) Size() int64         { return m.header.Size }

func (m *multipartSource) Open() (io.ReadCloser, error) {
	return m.header.Open()
}

type localFileSource struct {
	path        string
	size        int64
	contentType string
}

// NewLocalFileSource describes a file on disk, detecting its type from
// content. Files over maxSize are typed by extension and never opened.
func NewLocalFileSource(path string, maxSize int64) (FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	ct := detectType(path, info.Size(), maxSize, func() (*mimetype.MIME, error) {
		return mimetype.DetectFile(path)
	})
	return &localFileSource{path: path, size: info.Size(), contentType: ct}, nil
}

// detectType sniffs content only when size is within maxSize; otherwise, or
// when sniffing fails, the type comes from the file extension.
func detectType(name string, size, maxSize int64, sniff func() (*mimetype.MIME, error)) string {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if size <= maxSize {
		if detected, err := sniff(); err == nil {
			return detected.String()
		}
	}
	return mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
}

func (l *localFileSource) Name() string        { return filepath.Base(l.path) }
func (l *localFileSource) ContentType() string { return l.contentType }
func (l *localFileSource) Size() int64         { return l.size }

func (l *localFileSource) Open() (io.ReadCloser, error) {
	return os.Open(l.path)
}

type bytesSource struct {
	name        string
	contentType string
	data        []byte
}

// NewBytesSource wraps in-memory content with a declared type.
func NewBytesSource(name, contentType string, data []byte) FileSource {
	return &bytesSource{name: name, contentType: contentType, data: data}
}

func (b *bytesSource) Name() string        { return b.name }
func (b *bytesSource) ContentType() string { return b.contentType }
func (b *bytesSource) Size() int64         { return int64(len(b.data)) }

func (b *bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}
