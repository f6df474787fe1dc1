package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects as files under root/bucket. Used for development and tests.
type LocalStore struct {
	root   string
	bucket string
}

var _ ObjectStore = (*LocalStore)(nil)

func NewLocalStore(root, bucket string) (*LocalStore, error) {
	dir := filepath.Join(root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: root, bucket: bucket}, nil
}

func (l *LocalStore) Bucket() string { return l.bucket }

func (l *LocalStore) path(key string) (string, error) {
	base := filepath.Join(l.root, l.bucket)
	p := filepath.Join(base, filepath.FromSlash(key))
	if p == base || !strings.HasPrefix(p, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: key %q escapes bucket", ErrObjectNotFound, key)
	}
	return p, nil
}

func (l *LocalStore) Stat(_ context.Context, key string) Size {
	p, err := l.path(key)
	if err != nil {
		return UnknownSize
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return UnknownSize
	}
	return KnownSize(info.Size())
}

func (l *LocalStore) Open(ctx context.Context, key string) (*Object, error) {
	return l.OpenRange(ctx, key, 0, 0)
}

func (l *LocalStore) OpenRange(_ context.Context, key string, offset, length int64) (*Object, error) {
	if err := validateRange(offset, length); err != nil {
		return nil, err
	}
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %q: %w", key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("open %q: %w", key, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %q: %w", key, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %q: %w", key, ErrObjectNotFound)
	}

	size := info.Size()
	if offset == 0 && length <= 0 {
		return &Object{Body: f, Length: size}, nil
	}
	if offset >= size {
		_ = f.Close()
		return nil, fmt.Errorf("%w: offset %d beyond size %d", ErrInvalidRange, offset, size)
	}
	n := size - offset
	if length > 0 && length < n {
		n = length
	}
	return &Object{
		Body:   &sectionReadCloser{SectionReader: io.NewSectionReader(f, offset, n), file: f},
		Length: n,
	}, nil
}

type sectionReadCloser struct {
	*io.SectionReader
	file *os.File
}

func (s *sectionReadCloser) Close() error { return s.file.Close() }

func (l *LocalStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (err error) {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("create tmp file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmpFile, r); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("close tmp file: %w", err)
	}
	if err = os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("move object: %w", err)
	}
	return nil
}

func (l *LocalStore) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
