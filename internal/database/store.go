package database

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"fylr/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var Schema string

// Querier is the persistence boundary for the files tree. Lookups return
// (nil, nil) when no row matches the owner-scoped filter.
type Querier interface {
	CreateNode(ctx context.Context, arg CreateNodeParams) (*models.Node, error)
	GetNodeByID(ctx context.Context, id string, ownerID string) (*models.Node, error)
	ListChildren(ctx context.Context, ownerID string, parentID *string) ([]models.Node, error)
	ListChildrenOf(ctx context.Context, ownerID string, parentIDs []string) ([]models.Node, error)
	ListTrash(ctx context.Context, ownerID string) ([]models.Node, error)
	ListStarred(ctx context.Context, ownerID string) ([]models.Node, error)
	SetTrash(ctx context.Context, id string, ownerID string, isTrash bool) (*models.Node, error)
	SetTrashBulk(ctx context.Context, ownerID string, ids []string, isTrash bool) (int64, error)
	SetStarred(ctx context.Context, id string, ownerID string, isStarred bool) (*models.Node, error)
	RenameNode(ctx context.Context, id string, ownerID string, name string) (*models.Node, error)
	MoveNode(ctx context.Context, id string, ownerID string, parentID *string) (*models.Node, error)
	DeleteNode(ctx context.Context, id string, ownerID string) (*models.Node, error)
	DeleteTrashed(ctx context.Context, ownerID string) ([]models.Node, error)
	LogEvent(ctx context.Context, ownerID string, eventType string, payload interface{}) (*models.Event, error)
	GetEventsSince(ctx context.Context, ownerID string, sinceID int64) ([]models.Event, error)
}

// Store groups Querier calls into transactions. Either every write made
// through the Querier handed to fn is committed, or none is.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
	Ping(ctx context.Context) error
}

type PostgresStore struct {
	pool *pgxpool.Pool
	*Queries
}

func NewStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:    pool,
		Queries: New(pool),
	}
}

func (s *PostgresStore) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := New(tx)
	err = fn(q)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %w, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func marshalEvent(eventType string, payload interface{}) ([]byte, error) {
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event payload: %w", eventType, err)
	}
	return eventBytes, nil
}
