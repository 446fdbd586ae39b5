// Package service holds the orchestrator's infrastructure helpers.
package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	conversionDomain "github.com/echocipher/carrier/internal/conversion/domain"
	"github.com/echocipher/carrier/internal/errors"
)

// UploadStore spools uploads to a directory of fs.
type UploadStore struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadStore creates the upload directory when needed.
func NewUploadStore(fs afero.Fs, dir string, maxBytes int64, logger *slog.Logger) (*UploadStore, error) {
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create upload dir")
	}
	return &UploadStore{
		fs:       fs,
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logger,
	}, nil
}

// Save copies r into a new temporary file. It fails with ErrFileTooLarge
// without keeping anything when r holds more than the configured maximum.
func (s *UploadStore) Save(fileName string, r io.Reader) (*conversionDomain.Upload, error) {
	f, err := afero.TempFile(s.fs, s.dir, "upload-*"+filepath.Ext(fileName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create upload file")
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	size, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	upload := &conversionDomain.Upload{Path: f.Name(), FileName: fileName, Size: size}
	switch {
	case copyErr != nil:
		s.Remove(upload)
		return nil, errors.Wrap(copyErr, "failed to write upload")
	case closeErr != nil:
		s.Remove(upload)
		return nil, errors.Wrap(closeErr, "failed to close upload")
	case s.maxBytes > 0 && size > s.maxBytes:
		s.Remove(upload)
		return nil, conversionDomain.ErrFileTooLarge
	}
	return upload, nil
}

// Read returns the content of a spooled upload.
func (s *UploadStore) Read(ctx context.Context, upload *conversionDomain.Upload) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, upload.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read upload")
	}
	return data, nil
}

// Remove deletes a spooled upload. Failures are logged only.
func (s *UploadStore) Remove(upload *conversionDomain.Upload) {
	if upload == nil || upload.Path == "" {
		return
	}
	if err := s.fs.Remove(upload.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove upload",
			slog.String("path", upload.Path),
			slog.Any("error", err),
		)
	}
}

// Sweep removes uploads older than maxAge, left behind by an interrupted
// process, and returns how many were removed.
func (s *UploadStore) Sweep(maxAge time.Duration) (int, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list upload dir")
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, info := range infos {
		if info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.dir, info.Name())); err != nil {
			s.logger.Warn("failed to sweep upload",
				slog.String("file", info.Name()),
				slog.Any("error", err),
			)
			continue
		}
		removed++
	}
	return removed, nil
}
