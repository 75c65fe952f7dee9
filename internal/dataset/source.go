package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andresuchdata/premium-allocation/internal/drive"
	"github.com/andresuchdata/premium-allocation/internal/storage"
)

// LocalSource reads tables from a directory on disk
type LocalSource struct {
	Dir string
}

func (s LocalSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.Dir, name))
}

func (s LocalSource) String() string { return "local:" + s.Dir }

// ObjectSource reads tables from an S3-compatible bucket under a prefix
type ObjectSource struct {
	Store  storage.ObjectStorage
	Prefix string
}

// Open fetches prefix/name. When the exact key is absent the prefix listing
// is searched for a case-insensitive match on the base name.
func (s ObjectSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(s.Prefix, name)
	rc, err := s.Store.GetObject(ctx, key)
	if err == nil {
		return rc, nil
	}

	objects, listErr := s.Store.ListObjects(ctx, s.Prefix)
	if listErr != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	for _, obj := range objects {
		if strings.EqualFold(path.Base(obj.Key), name) {
			return s.Store.GetObject(ctx, obj.Key)
		}
	}
	return nil, fmt.Errorf("failed to get %s: %w", key, err)
}

func (s ObjectSource) String() string { return "s3:" + s.Prefix }

// DriveFiles is the subset of the Drive client used by DriveSource
type DriveFiles interface {
	FindFolderByPath(ctx context.Context, path string) (string, error)
	ListFiles(ctx context.Context, folderID string) ([]*drive.File, error)
	DownloadFile(ctx context.Context, file *drive.File, w io.Writer) error
}

// DriveSource reads tables from a Google Drive folder
type DriveSource struct {
	Files      DriveFiles
	FolderPath string

	once    sync.Once
	listing map[string]*drive.File
	err     error
}

// NewDriveSource creates a DriveSource for a folder path such as "workshop/data".
func NewDriveSource(files DriveFiles, folderPath string) *DriveSource {
	return &DriveSource{Files: files, FolderPath: folderPath}
}

func (s *DriveSource) list(ctx context.Context) (map[string]*drive.File, error) {
	s.once.Do(func() {
		folderID, err := s.Files.FindFolderByPath(ctx, s.FolderPath)
		if err != nil {
			s.err = fmt.Errorf("failed to resolve drive folder %q: %w", s.FolderPath, err)
			return
		}
		files, err := s.Files.ListFiles(ctx, folderID)
		if err != nil {
			s.err = fmt.Errorf("failed to list drive folder %q: %w", s.FolderPath, err)
			return
		}
		s.listing = make(map[string]*drive.File, len(files))
		for _, f := range files {
			s.listing[strings.ToLower(f.TableName())] = f
		}
	})
	return s.listing, s.err
}

func (s *DriveSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	listing, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	f, ok := listing[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("file %s not found in drive folder %q", name, s.FolderPath)
	}

	var buf bytes.Buffer
	if err := s.Files.DownloadFile(ctx, f, &buf); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", name, err)
	}
	return io.NopCloser(&buf), nil
}

func (s *DriveSource) String() string { return "drive:" + s.FolderPath }
