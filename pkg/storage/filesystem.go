package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for stored names that would escape the base directory.
var ErrInvalidName = errors.New("invalid stored file name")

// LocalStorage persists attachments on disk under a base directory. Files are
// content addressed: the stored name is the sha256 of the content plus the
// original extension, so identical uploads share one file.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./storage/submissions"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveContent stores r under its content hash and returns the stored name.
func (s *LocalStorage) SaveContent(originalName string, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.baseDir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}

	stored := hex.EncodeToString(hasher.Sum(nil)) + strings.ToLower(filepath.Ext(originalName))
	target := filepath.Join(s.baseDir, stored)
	if _, err := os.Stat(target); err == nil {
		return stored, nil
	}
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return stored, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(storedName string) (*os.File, error) {
	path, err := s.resolve(storedName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(storedName string) error {
	path, err := s.resolve(storedName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete stored file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(storedName string) (string, error) {
	if storedName == "" || storedName != filepath.Base(storedName) || strings.HasPrefix(storedName, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.baseDir, storedName), nil
}
