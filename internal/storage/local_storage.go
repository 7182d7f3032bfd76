package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jaevor/go-nanoid"
)

var ErrInvalidPath = errors.New("object path escapes storage root")

const tempSuffix = ".tmp"

func isTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, tempSuffix)
}

type LocalStorage struct {
	basePath  string
	publicURL string
	tempName  func() string
}

func NewLocalStorage(basePath, publicURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}

	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}

	return &LocalStorage{
		basePath:  basePath,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		tempName:  gen,
	}, nil
}

func (ls *LocalStorage) diskPath(objectPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + objectPath))
	full := filepath.Join(ls.basePath, clean)

	rel, err := filepath.Rel(ls.basePath, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return full, nil
}

// Upload writes the body to a temporary file next to its destination and
// renames it into place, so readers never observe a partial object.
func (ls *LocalStorage) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	objPath := objectPath(req.Folder, req.FileName)
	filePath, err := ls.diskPath(objPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}

	tmpPath := filepath.Join(dir, "."+ls.tempName()+tempSuffix)
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(file, req.Body); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return nil, err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	return &UploadResult{
		Path: objPath,
		URL:  ls.publicURL + objPath,
	}, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, objectPath string) error {
	filePath, err := ls.diskPath(objectPath)
	if err != nil {
		return err
	}

	err = os.Remove(filePath)
	if os.IsNotExist(err) {
		return nil
	}

	return err
}

// Handler serves stored objects by their object path. Directories and
// in-flight temporary files answer 404, so the tree of owners and names
// cannot be enumerated.
func (ls *LocalStorage) Handler() http.Handler {
	return http.FileServer(objectsOnly{http.Dir(ls.basePath)})
}

type objectsOnly struct {
	fs http.FileSystem
}

func (o objectsOnly) Open(name string) (http.File, error) {
	if strings.HasSuffix(name, "/") || isTempName(path.Base(name)) {
		return nil, os.ErrNotExist
	}

	f, err := o.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, os.ErrNotExist
	}

	return f, nil
}
