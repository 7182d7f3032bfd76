package models

import (
	"strings"
	"time"
)

const FolderType = "folder"

type Node struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"type"`
	StorageURL   string    `json:"fileUrl"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	OwnerID      string    `json:"userId"`
	ParentID     *string   `json:"parentId"`
	IsFolder     bool      `json:"isFolder"`
	IsStarred    bool      `json:"isStarred"`
	IsTrash      bool      `json:"isTrash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsImage reports whether the node holds image content.
func (n *Node) IsImage() bool {
	return !n.IsFolder && strings.HasPrefix(n.ContentType, "image/")
}
