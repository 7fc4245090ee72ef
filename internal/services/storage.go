package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// StorageService keeps generated report files in a single directory.
type StorageService interface {
	SaveFile(prefix, ext string, data []byte) (string, error)
	GetFilePath(filename string) string
	DeleteFile(filename string) error
	EnsureDir() error
	Dir() string
}

type storageService struct {
	dir string
}

func NewStorageService(dir string) StorageService {
	return &storageService{
		dir: dir,
	}
}

func (s *storageService) Dir() string {
	return s.dir
}

func (s *storageService) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	return nil
}

// SaveFile writes data under a generated name such as report_1a2b3c4d.pdf and
// returns that name.
func (s *storageService) SaveFile(prefix, ext string, data []byte) (string, error) {
	if err := s.EnsureDir(); err != nil {
		return "", err
	}

	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	filename := fmt.Sprintf("%s_%s%s", prefix, id, ext)

	if err := os.WriteFile(s.GetFilePath(filename), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return filename, nil
}

func (s *storageService) GetFilePath(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

func (s *storageService) DeleteFile(filename string) error {
	if err := os.Remove(s.GetFilePath(filename)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
