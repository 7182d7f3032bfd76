package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"fylr/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ImageKitStorage talks to the ImageKit upload and media APIs. ImageKit
// generates the thumbnail URL for images itself.
type ImageKitStorage struct {
	client    *resty.Client
	uploadURL string
}

type imageKitFile struct {
	FileID       string `json:"fileId"`
	Name         string `json:"name"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	FilePath     string `json:"filePath"`
}

type imageKitError struct {
	Message string `json:"message"`
}

// NewImageKitStorage builds the provider on hc, or on a default client when
// hc is nil.
func NewImageKitStorage(cfg config.ImageKitConfig, hc *http.Client, logger *zap.Logger) *ImageKitStorage {
	if hc == nil {
		hc = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.NewWithClient(hc).
		SetBaseURL(strings.TrimSuffix(cfg.APIURL, "/")).
		SetBasicAuth(cfg.PrivateKey, "").
		SetHeader("Accept", "application/json").
		SetError(&imageKitError{}).
		SetLogger(logger.Sugar())

	return &ImageKitStorage{client: client, uploadURL: cfg.UploadURL}
}

func statusError(resp *resty.Response) error {
	if e, ok := resp.Error().(*imageKitError); ok && e.Message != "" {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), e.Message)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
}

// Upload streams the object to ImageKit as a multipart form. The body is
// piped into the request, so only one copy buffer is held per upload.
func (ik *ImageKitStorage) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	written := make(chan error, 1)
	go func() {
		err := writeUploadForm(mw, req)
		pw.CloseWithError(err)
		written <- err
	}()

	var uploaded imageKitFile
	resp, err := ik.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", mw.FormDataContentType()).
		SetBody(pr).
		SetResult(&uploaded).
		ForceContentType("application/json").
		Post(ik.uploadURL)

	// Unblocks the writer when the request ended before consuming the body.
	pr.Close()
	writeErr := <-written

	if err != nil {
		return nil, errors.Wrap(err, "imagekit upload")
	}
	if resp.IsError() {
		return nil, errors.Wrap(statusError(resp), "imagekit upload")
	}
	if writeErr != nil {
		return nil, errors.Wrap(writeErr, "imagekit upload")
	}

	result := &UploadResult{
		Path: uploaded.FilePath,
		URL:  uploaded.URL,
	}
	if uploaded.FilePath == "" {
		result.Path = objectPath(req.Folder, req.FileName)
	}
	if uploaded.ThumbnailURL != "" {
		thumb := uploaded.ThumbnailURL
		result.ThumbnailURL = &thumb
	}
	return result, nil
}

func writeUploadForm(mw *multipart.Writer, req UploadRequest) error {
	fields := [][2]string{
		{"fileName", req.FileName},
		{"folder", req.Folder},
		{"useUniqueFileName", "false"},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", req.FileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return err
	}
	return mw.Close()
}

// Delete resolves the ImageKit file id for objectPath and removes it.
func (ik *ImageKitStorage) Delete(ctx context.Context, objectPath string) error {
	dir, name := path.Split(objectPath)

	var files []imageKitFile
	resp, err := ik.client.R().
		SetContext(ctx).
		SetQueryParam("path", dir).
		SetQueryParam("searchQuery", fmt.Sprintf("name = %q", name)).
		SetResult(&files).
		ForceContentType("application/json").
		Get("/files")
	if err != nil {
		return errors.Wrap(err, "imagekit list")
	}
	if resp.IsError() {
		return errors.Wrap(statusError(resp), "imagekit list")
	}

	for _, f := range files {
		if f.FilePath != "" && f.FilePath != objectPath {
			continue
		}
		resp, err := ik.client.R().
			SetContext(ctx).
			SetPathParam("fileId", f.FileID).
			Delete("/files/{fileId}")
		if err != nil {
			return errors.Wrap(err, "imagekit delete")
		}
		if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
			return errors.Wrap(statusError(resp), "imagekit delete")
		}
	}

	return nil
}
