// Package files implements the owner-scoped file and folder operations:
// listing with trashed-ancestor projection, uploads, the cascading trash
// toggle, moves, and permanent deletion.
package files

import (
	"context"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"fylr/internal/database"
	"fylr/internal/models"
	"fylr/internal/storage"
	"fylr/internal/tree"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Publisher receives journal events after their transaction commits.
type Publisher interface {
	PublishEvent(ownerID string, data []byte)
}

type Service struct {
	store        database.Store
	storage      storage.Provider
	publisher    Publisher
	logger       *zap.Logger
	metrics      *serviceMetrics
	root         string
	maxBytes     int64
	cleanupLimit int
	newID        func() string
}

type Option func(*Service)

// WithRoot sets the path prefix objects and folder paths are placed under.
func WithRoot(root string) Option {
	return func(s *Service) {
		s.root = path.Clean("/" + root)
	}
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(reg)
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		s.maxBytes = n
	}
}

// WithCleanupConcurrency bounds parallel storage deletes after empty-trash.
func WithCleanupConcurrency(n int) Option {
	return func(s *Service) {
		s.cleanupLimit = n
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

func NewService(store database.Store, provider storage.Provider, publisher Publisher, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:        store,
		storage:      provider,
		publisher:    publisher,
		logger:       logger,
		root:         "/fylr",
		cleanupLimit: 8,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = newServiceMetrics(nil)
	}
	return s
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return ErrUnauthorized
	}
	return nil
}

// ownerFolder is where objects uploaded into parentID are stored.
func (s *Service) ownerFolder(ownerID string, parentID *string) string {
	if parentID == nil {
		return path.Join(s.root, ownerID)
	}
	return path.Join(s.root, ownerID, "folder", *parentID)
}

// checkParent verifies parentID names a folder owned by ownerID.
func checkParent(ctx context.Context, q database.Querier, ownerID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	parent, err := q.GetNodeByID(ctx, *parentID, ownerID)
	if err != nil {
		return err
	}
	if parent == nil || !parent.IsFolder {
		return ErrInvalidParent
	}
	return nil
}

func (s *Service) publish(event *models.Event) {
	if s.publisher == nil || event == nil {
		return
	}
	msg, err := event.Message()
	if err != nil {
		s.logger.Warn("failed to encode event", zap.Int64("event_id", event.ID), zap.Error(err))
		return
	}
	s.publisher.PublishEvent(event.OwnerID, msg)
}

// List returns the children of parentID, or of the root when parentID is
// nil. When the folder or one of its ancestors is trashed, every child is
// reported as trashed without touching the stored rows.
func (s *Service) List(ctx context.Context, ownerID string, parentID *string) ([]models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.store.GetNodeByID(ctx, *parentID, ownerID)
		if err != nil {
			return nil, internal(err)
		}
		if parent == nil {
			return nil, ErrNotFound
		}
		if !parent.IsFolder {
			return nil, ErrInvalidParent
		}
	}

	children, err := s.store.ListChildren(ctx, ownerID, parentID)
	if err != nil {
		return nil, internal(err)
	}

	trashed, err := tree.IsEffectivelyTrashed(ctx, s.store, ownerID, parentID)
	if err != nil {
		return nil, internal(err)
	}
	if trashed {
		return tree.ProjectTrashed(children), nil
	}

	return children, nil
}

func (s *Service) CreateFolder(ctx context.Context, ownerID string, in CreateFolderInput) (*models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var folder *models.Node
	var event *models.Event
	err := s.store.ExecTx(ctx, func(q database.Querier) error {
		if err := checkParent(ctx, q, ownerID, in.ParentID); err != nil {
			return err
		}

		var err error
		folder, err = q.CreateNode(ctx, database.CreateNodeParams{
			ID:          s.newID(),
			OwnerID:     ownerID,
			ParentID:    in.ParentID,
			Name:        in.Name,
			Path:        path.Join(s.ownerFolder(ownerID, in.ParentID), in.Name),
			ContentType: models.FolderType,
			IsFolder:    true,
		})
		if err != nil {
			return err
		}

		event, err = q.LogEvent(ctx, ownerID, models.EventFolderCreated, folder)
		return err
	})
	if err != nil {
		return nil, internal(err)
	}

	s.publish(event)
	s.logger.Info("folder created", zap.String("owner_id", ownerID), zap.String("node_id", folder.ID))
	return folder, nil
}

// Upload stores the bytes with the provider and records the file. The
// object is removed again if the row cannot be written.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (*models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && in.Size > s.maxBytes {
		return nil, ErrTooLarge
	}
	if err := checkParent(ctx, s.store, ownerID, in.ParentID); err != nil {
		return nil, internal(err)
	}

	id := s.newID()
	objectName := id + strings.ToLower(filepath.Ext(in.FileName))

	uploaded, err := s.storage.Upload(ctx, storage.UploadRequest{
		Folder:      s.ownerFolder(ownerID, in.ParentID),
		FileName:    objectName,
		ContentType: in.ContentType,
		Size:        in.Size,
		Body:        in.Body,
	})
	if err != nil {
		return nil, internal(err)
	}

	var file *models.Node
	var event *models.Event
	err = s.store.ExecTx(ctx, func(q database.Querier) error {
		if err := checkParent(ctx, q, ownerID, in.ParentID); err != nil {
			return err
		}

		var err error
		file, err = q.CreateNode(ctx, database.CreateNodeParams{
			ID:           id,
			OwnerID:      ownerID,
			ParentID:     in.ParentID,
			Name:         in.FileName,
			Path:         uploaded.Path,
			Size:         in.Size,
			ContentType:  in.ContentType,
			StorageURL:   uploaded.URL,
			ThumbnailURL: uploaded.ThumbnailURL,
		})
		if err != nil {
			return err
		}

		event, err = q.LogEvent(ctx, ownerID, models.EventFileCreated, file)
		return err
	})
	if err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), uploaded.Path); delErr != nil {
			s.metrics.cleanupFailures.Inc()
			s.logger.Warn("failed to remove orphaned upload",
				zap.String("owner_id", ownerID), zap.String("path", uploaded.Path), zap.Error(delErr))
		}
		return nil, internal(err)
	}

	s.metrics.uploadedBytes.Add(float64(in.Size))
	s.publish(event)
	s.logger.Info("file uploaded",
		zap.String("owner_id", ownerID), zap.String("node_id", file.ID), zap.Int64("size", file.Size))
	return file, nil
}

// RegisterUpload records a file the client uploaded directly to the
// storage provider. It is placed at the root of the owner's tree.
func (s *Service) RegisterUpload(ctx context.Context, ownerID string, in RegisterUploadInput) (*models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if in.UserID != ownerID {
		return nil, ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	up := in.Upload
	name := strings.TrimSpace(up.Name)
	if name == "" {
		name = defaultRegisteredName
	}
	filePath := up.FilePath
	if filePath == "" {
		filePath = path.Join(s.root, ownerID, name)
	}
	fileType := up.FileType
	if fileType == "" {
		fileType = defaultRegisteredType
	}

	var file *models.Node
	var event *models.Event
	err := s.store.ExecTx(ctx, func(q database.Querier) error {
		var err error
		file, err = q.CreateNode(ctx, database.CreateNodeParams{
			ID:           s.newID(),
			OwnerID:      ownerID,
			Name:         name,
			Path:         filePath,
			Size:         up.Size,
			ContentType:  fileType,
			StorageURL:   up.URL,
			ThumbnailURL: up.ThumbnailURL,
		})
		if err != nil {
			return err
		}

		event, err = q.LogEvent(ctx, ownerID, models.EventFileCreated, file)
		return err
	})
	if err != nil {
		return nil, internal(err)
	}

	s.publish(event)
	return file, nil
}

type trashPayload struct {
	File          *models.Node `json:"file"`
	DescendantIDs []string     `json:"descendantIds"`
}

// ToggleTrash flips the node's own trash flag and, for folders, forces the
// same value onto every current descendant. The whole cascade commits or
// rolls back as one transaction.
func (s *Service) ToggleTrash(ctx context.Context, ownerID, id string) (*models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var updated *models.Node
	var event *models.Event
	var cascaded int64
	err := s.store.ExecTx(ctx, func(q database.Querier) error {
		node, err := q.GetNodeByID(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if node == nil {
			return ErrNotFound
		}

		newStatus := !node.IsTrash
		updated, err = q.SetTrash(ctx, id, ownerID, newStatus)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrNotFound
		}

		descendants := []string{}
		if node.IsFolder {
			descendants, err = tree.DescendantIDs(ctx, q, ownerID, id)
			if err != nil {
				return err
			}
			cascaded, err = q.SetTrashBulk(ctx, ownerID, descendants, newStatus)
			if err != nil {
				return err
			}
		}

		eventType := models.EventFileRestored
		if newStatus {
			eventType = models.EventFileTrashed
		}
		event, err = q.LogEvent(ctx, ownerID, eventType, trashPayload{File: updated, DescendantIDs: descendants})
		return err
	})
	if err != nil {
		return nil, internal(err)
	}

	action := "restore"
	if updated.IsTrash {
		action = "trash"
	}
	s.metrics.trashToggles.WithLabelValues(action).Inc()
	s.metrics.cascadedNodes.Add(float64(cascaded))

	s.publish(event)
	s.logger.Info("trash toggled",
		zap.String("owner_id", ownerID), zap.String("node_id", id),
		zap.Bool("is_trash", updated.IsTrash), zap.Int64("cascaded", cascaded))
	return updated, nil
}

func (s *Service) ToggleStar(ctx context.Context, ownerID, id string) (*models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var updated *models.Node
	var event *models.Event
	err := s.store.ExecTx(ctx, func(q database.Querier) error {
		node, err := q.GetNodeByID(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if node == nil {
			return ErrNotFound
		}

		updated, err = q.SetStarred(ctx, id, ownerID, !node.IsStarred)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrNotFound
		}

		eventType := models.EventFileUnstarred
		if updated.IsStarred {
			eventType = models.EventFileStarred
		}
		event, err = q.LogEvent(ctx, ownerID, eventType, updated)
		return err
	})
	if err != nil {
		return nil, internal(err)
	}

	s.publish(event)
	return updated, nil
}

func (s *Service) Rename(ctx context.Context, ownerID, id string, in RenameInput) (*models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Node
	var event *models.Event
	err := s.store.ExecTx(ctx, func(q database.Querier) error {
		var err error
		updated, err = q.RenameNode(ctx, id, ownerID, in.Name)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrNotFound
		}

		event, err = q.LogEvent(ctx, ownerID, models.EventFileRenamed, updated)
		return err
	})
	if err != nil {
		return nil, internal(err)
	}

	s.publish(event)
	return updated, nil
}

// Move re-parents a node. Folders cannot be moved into themselves or their
// own subtree; the check and the write share one transaction. Trash flags
// are left as they are.
func (s *Service) Move(ctx context.Context, ownerID, id string, parentID *string) (*models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var updated *models.Node
	var event *models.Event
	err := s.store.ExecTx(ctx, func(q database.Querier) error {
		node, err := q.GetNodeByID(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if node == nil {
			return ErrNotFound
		}

		if parentID != nil {
			if *parentID == id {
				return ErrCycle
			}
			if err := checkParent(ctx, q, ownerID, parentID); err != nil {
				return err
			}
			if node.IsFolder {
				descendants, err := tree.DescendantIDs(ctx, q, ownerID, id)
				if err != nil {
					return err
				}
				if slices.Contains(descendants, *parentID) {
					return ErrCycle
				}
			}
		}

		updated, err = q.MoveNode(ctx, id, ownerID, parentID)
		if err != nil {
			return err
		}
		if updated == nil {
			return ErrNotFound
		}

		event, err = q.LogEvent(ctx, ownerID, models.EventFileMoved, updated)
		return err
	})
	if err != nil {
		return nil, internal(err)
	}

	s.publish(event)
	return updated, nil
}

// Delete permanently removes exactly one row; children of a deleted folder
// are not touched. The stored object is removed best-effort.
func (s *Service) Delete(ctx context.Context, ownerID, id string) (*models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var deleted *models.Node
	var event *models.Event
	err := s.store.ExecTx(ctx, func(q database.Querier) error {
		var err error
		deleted, err = q.DeleteNode(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if deleted == nil {
			return ErrNotFound
		}

		event, err = q.LogEvent(ctx, ownerID, models.EventFileDeleted, deleted)
		return err
	})
	if err != nil {
		return nil, internal(err)
	}

	s.metrics.deletedNodes.Inc()
	s.publish(event)
	s.removeObjects(context.WithoutCancel(ctx), ownerID, []models.Node{*deleted})
	s.logger.Info("file deleted", zap.String("owner_id", ownerID), zap.String("node_id", id))
	return deleted, nil
}

// EmptyTrash deletes every row of the owner whose own trash flag is set
// and returns how many were removed.
func (s *Service) EmptyTrash(ctx context.Context, ownerID string) (int64, error) {
	if err := requireOwner(ownerID); err != nil {
		return 0, err
	}

	var deleted []models.Node
	var event *models.Event
	err := s.store.ExecTx(ctx, func(q database.Querier) error {
		var err error
		deleted, err = q.DeleteTrashed(ctx, ownerID)
		if err != nil {
			return err
		}

		event, err = q.LogEvent(ctx, ownerID, models.EventTrashEmptied, map[string]int{"deletedCount": len(deleted)})
		return err
	})
	if err != nil {
		return 0, internal(err)
	}

	count := int64(len(deleted))
	s.metrics.deletedNodes.Add(float64(count))
	s.publish(event)
	s.removeObjects(context.WithoutCancel(ctx), ownerID, deleted)
	s.logger.Info("trash emptied", zap.String("owner_id", ownerID), zap.Int64("deleted", count))
	return count, nil
}

// removeObjects deletes the stored bytes of already removed file rows.
// Failures are logged and counted, never returned.
func (s *Service) removeObjects(ctx context.Context, ownerID string, nodes []models.Node) {
	if s.storage == nil {
		return
	}

	var g errgroup.Group
	if s.cleanupLimit > 0 {
		g.SetLimit(s.cleanupLimit)
	}
	for _, n := range nodes {
		if n.IsFolder || n.Path == "" {
			continue
		}
		objectPath := n.Path
		nodeID := n.ID
		g.Go(func() error {
			if err := s.storage.Delete(ctx, objectPath); err != nil {
				s.metrics.cleanupFailures.Inc()
				s.logger.Warn("failed to delete stored object",
					zap.String("owner_id", ownerID), zap.String("node_id", nodeID),
					zap.String("path", objectPath), zap.Error(err))
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) ListTrash(ctx context.Context, ownerID string) ([]models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	nodes, err := s.store.ListTrash(ctx, ownerID)
	if err != nil {
		return nil, internal(err)
	}
	return nodes, nil
}

func (s *Service) ListStarred(ctx context.Context, ownerID string) ([]models.Node, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	nodes, err := s.store.ListStarred(ctx, ownerID)
	if err != nil {
		return nil, internal(err)
	}
	return nodes, nil
}

func (s *Service) Events(ctx context.Context, ownerID string, sinceID int64) ([]models.Event, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	events, err := s.store.GetEventsSince(ctx, ownerID, sinceID)
	if err != nil {
		return nil, internal(err)
	}
	return events, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
