package database

import (
	"context"
	"errors"
	"fylr/internal/models"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const nodeColumns = `id, name, path, size, type, file_url, thumbnail_url, user_id, parent_id,
	is_folder, is_starred, is_trash, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.ID,
		&node.Name,
		&node.Path,
		&node.Size,
		&node.ContentType,
		&node.StorageURL,
		&node.ThumbnailURL,
		&node.OwnerID,
		&node.ParentID,
		&node.IsFolder,
		&node.IsStarred,
		&node.IsTrash,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// scanOptionalNode maps pgx.ErrNoRows to (nil, nil).
func scanOptionalNode(row pgx.Row) (*models.Node, error) {
	node, err := scanNode(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return node, nil
}

func collectNodes(rows pgx.Rows) ([]models.Node, error) {
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *node)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if nodes == nil {
		return []models.Node{}, nil
	}

	return nodes, nil
}

type CreateNodeParams struct {
	ID           string
	OwnerID      string
	ParentID     *string
	Name         string
	Path         string
	Size         int64
	ContentType  string
	StorageURL   string
	ThumbnailURL *string
	IsFolder     bool
}

func (q *Queries) CreateNode(ctx context.Context, arg CreateNodeParams) (*models.Node, error) {
	query := `
		INSERT INTO files (id, name, path, size, type, file_url, thumbnail_url, user_id, parent_id,
			is_folder, is_starred, is_trash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, FALSE, $11, $11)
		RETURNING ` + nodeColumns

	now := time.Now()

	row := q.db.QueryRow(ctx, query,
		arg.ID,
		arg.Name,
		arg.Path,
		arg.Size,
		arg.ContentType,
		arg.StorageURL,
		arg.ThumbnailURL,
		arg.OwnerID,
		arg.ParentID,
		arg.IsFolder,
		now,
	)

	return scanNode(row)
}

func (q *Queries) GetNodeByID(ctx context.Context, id string, ownerID string) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM files WHERE id = $1 AND user_id = $2`
	return scanOptionalNode(q.db.QueryRow(ctx, query, id, ownerID))
}

func (q *Queries) ListChildren(ctx context.Context, ownerID string, parentID *string) ([]models.Node, error) {
	var rows pgx.Rows
	var err error

	if parentID == nil {
		query := `SELECT ` + nodeColumns + `
				 FROM files
				 WHERE user_id = $1 AND parent_id IS NULL
				 ORDER BY is_folder DESC, name`
		rows, err = q.db.Query(ctx, query, ownerID)
	} else {
		query := `SELECT ` + nodeColumns + `
				 FROM files
				 WHERE user_id = $1 AND parent_id = $2
				 ORDER BY is_folder DESC, name`
		rows, err = q.db.Query(ctx, query, ownerID, *parentID)
	}

	if err != nil {
		return nil, err
	}

	return collectNodes(rows)
}

// ListChildrenOf returns the direct children of every folder in parentIDs.
// One call serves one level of a breadth-first walk.
func (q *Queries) ListChildrenOf(ctx context.Context, ownerID string, parentIDs []string) ([]models.Node, error) {
	if len(parentIDs) == 0 {
		return []models.Node{}, nil
	}

	query := `SELECT ` + nodeColumns + `
		FROM files
		WHERE user_id = $1 AND parent_id = ANY($2)`
	rows, err := q.db.Query(ctx, query, ownerID, parentIDs)
	if err != nil {
		return nil, err
	}

	return collectNodes(rows)
}

func (q *Queries) ListTrash(ctx context.Context, ownerID string) ([]models.Node, error) {
	query := `SELECT ` + nodeColumns + `
		FROM files
		WHERE user_id = $1 AND is_trash = TRUE
		ORDER BY is_folder DESC, name`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}

	return collectNodes(rows)
}

func (q *Queries) ListStarred(ctx context.Context, ownerID string) ([]models.Node, error) {
	query := `SELECT ` + nodeColumns + `
		FROM files
		WHERE user_id = $1 AND is_starred = TRUE AND is_trash = FALSE
		ORDER BY is_folder DESC, name`
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}

	return collectNodes(rows)
}

func (q *Queries) SetTrash(ctx context.Context, id string, ownerID string, isTrash bool) (*models.Node, error) {
	query := `
		UPDATE files
		SET is_trash = $3
		WHERE id = $1 AND user_id = $2
		RETURNING ` + nodeColumns
	return scanOptionalNode(q.db.QueryRow(ctx, query, id, ownerID, isTrash))
}

func (q *Queries) SetTrashBulk(ctx context.Context, ownerID string, ids []string, isTrash bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE files
		SET is_trash = $3
		WHERE user_id = $1 AND id = ANY($2)
	`
	res, err := q.db.Exec(ctx, query, ownerID, ids, isTrash)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected(), nil
}

func (q *Queries) SetStarred(ctx context.Context, id string, ownerID string, isStarred bool) (*models.Node, error) {
	query := `
		UPDATE files
		SET is_starred = $3
		WHERE id = $1 AND user_id = $2
		RETURNING ` + nodeColumns
	return scanOptionalNode(q.db.QueryRow(ctx, query, id, ownerID, isStarred))
}

func (q *Queries) RenameNode(ctx context.Context, id string, ownerID string, name string) (*models.Node, error) {
	query := `
		UPDATE files
		SET name = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
		RETURNING ` + nodeColumns
	return scanOptionalNode(q.db.QueryRow(ctx, query, id, ownerID, name, time.Now()))
}

func (q *Queries) MoveNode(ctx context.Context, id string, ownerID string, parentID *string) (*models.Node, error) {
	query := `
		UPDATE files
		SET parent_id = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
		RETURNING ` + nodeColumns
	return scanOptionalNode(q.db.QueryRow(ctx, query, id, ownerID, parentID, time.Now()))
}

func (q *Queries) DeleteNode(ctx context.Context, id string, ownerID string) (*models.Node, error) {
	query := `DELETE FROM files WHERE id = $1 AND user_id = $2 RETURNING ` + nodeColumns
	return scanOptionalNode(q.db.QueryRow(ctx, query, id, ownerID))
}

func (q *Queries) DeleteTrashed(ctx context.Context, ownerID string) ([]models.Node, error) {
	query := `DELETE FROM files WHERE user_id = $1 AND is_trash = TRUE RETURNING ` + nodeColumns
	rows, err := q.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}

	return collectNodes(rows)
}

func (q *Queries) LogEvent(ctx context.Context, ownerID string, eventType string, payload interface{}) (*models.Event, error) {
	payloadBytes, err := marshalEvent(eventType, payload)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO event_journal (user_id, event_type, payload)
		VALUES ($1, $2, $3)
		RETURNING id, event_time
	`
	event := models.Event{
		OwnerID:   ownerID,
		EventType: eventType,
		Payload:   payloadBytes,
	}
	if err := q.db.QueryRow(ctx, query, ownerID, eventType, payloadBytes).Scan(&event.ID, &event.EventTime); err != nil {
		return nil, err
	}

	return &event, nil
}

func (q *Queries) GetEventsSince(ctx context.Context, ownerID string, sinceID int64) ([]models.Event, error) {
	query := `
		SELECT id, user_id, event_type, event_time, payload
		FROM event_journal
		WHERE user_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT 100
	`
	rows, err := q.db.Query(ctx, query, ownerID, sinceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.OwnerID,
			&event.EventType,
			&event.EventTime,
			&event.Payload,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if events == nil {
		return []models.Event{}, nil
	}

	return events, nil
}
