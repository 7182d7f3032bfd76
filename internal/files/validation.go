package files

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MaxNameLength = 255

	defaultRegisteredName = "untitled"
	defaultRegisteredType = "image"
)

var nameRule = regexp.MustCompile(`^[^/\x00]+$`)

type CreateFolderInput struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

func (in *CreateFolderInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	err := validation.ValidateStruct(in,
		validation.Field(&in.Name,
			validation.Required,
			validation.Length(1, MaxNameLength),
			validation.Match(nameRule).Error("must not contain '/'"),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return nil
}

type UploadInput struct {
	ParentID    *string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (in *UploadInput) Validate() error {
	in.FileName = strings.TrimSpace(in.FileName)
	err := validation.ValidateStruct(in,
		validation.Field(&in.FileName,
			validation.Required,
			validation.Length(1, MaxNameLength),
			validation.Match(nameRule).Error("must not contain '/'"),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if in.Body == nil {
		return fmt.Errorf("%w: missing file body", ErrInvalidInput)
	}
	if !isSupportedType(in.ContentType) {
		return ErrUnsupportedType
	}
	return nil
}

func isSupportedType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || contentType == "application/pdf"
}

// RegisteredUpload describes a file the client pushed straight to the
// storage provider.
type RegisteredUpload struct {
	Name         string  `json:"name"`
	FilePath     string  `json:"filePath"`
	Size         int64   `json:"size"`
	FileType     string  `json:"fileType"`
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

type RegisterUploadInput struct {
	UserID string           `json:"userId"`
	Upload RegisteredUpload `json:"upload"`
}

func (in *RegisterUploadInput) Validate() error {
	err := validation.ValidateStruct(&in.Upload,
		validation.Field(&in.Upload.URL, validation.Required),
		validation.Field(&in.Upload.Name, validation.Length(0, MaxNameLength)),
		validation.Field(&in.Upload.Size, validation.Min(int64(0))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

type RenameInput struct {
	Name string `json:"name"`
}

func (in *RenameInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	err := validation.ValidateStruct(in,
		validation.Field(&in.Name,
			validation.Required,
			validation.Length(1, MaxNameLength),
			validation.Match(nameRule).Error("must not contain '/'"),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	return nil
}
