package models

import (
	"encoding/json"
	"time"
)

const (
	EventFileCreated   = "file_created"
	EventFolderCreated = "folder_created"
	EventFileTrashed   = "file_trashed"
	EventFileRestored  = "file_restored"
	EventFileStarred   = "file_starred"
	EventFileUnstarred = "file_unstarred"
	EventFileRenamed   = "file_renamed"
	EventFileMoved     = "file_moved"
	EventFileDeleted   = "file_deleted"
	EventTrashEmptied  = "trash_emptied"
)

type Event struct {
	ID        int64           `json:"id"`
	OwnerID   string          `json:"-"`
	EventType string          `json:"event_type"`
	EventTime time.Time       `json:"event_time"`
	Payload   json.RawMessage `json:"payload"`
}

// Message is the frame pushed to websocket clients.
func (e *Event) Message() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"id":         e.ID,
		"event_type": e.EventType,
		"event_time": e.EventTime,
		"payload":    e.Payload,
	})
}
