// Package jsonfile stores calibration records in an indented JSON file.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/milosgajdos/go-planar/calibration"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxFileSize caps the size of a calibration file
const maxFileSize = 1 << 20

// Repository is a file backed calibration.Repository
type Repository struct {
	path string
}

// New creates new Repository stored at path and returns it.
// It returns error if path does not have .json extension.
func New(path string) (*Repository, error) {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".json" {
		return nil, fmt.Errorf("calibration file must have .json extension, got %q", ext)
	}

	return &Repository{path: clean}, nil
}

// Path returns the calibration file path
func (r *Repository) Path() string {
	return r.path
}

// Load reads the calibration file.
// It returns calibration.ErrNotFound if the file does not exist.
func (r *Repository) Load(ctx context.Context) (*calibration.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, calibration.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat calibration file: %w", err)
	}

	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("calibration file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}

	rec := &calibration.Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to parse calibration file: %w", err)
	}

	return rec, nil
}

// Save writes rec to a temporary file and renames it over the calibration file
func (r *Repository) Save(ctx context.Context, rec *calibration.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := rec.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create calibration dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".calibration-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write calibration: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close calibration: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace calibration file: %w", err)
	}

	return nil
}

// Delete removes the calibration file if it exists
func (r *Repository) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove calibration file: %w", err)
	}

	return nil
}
