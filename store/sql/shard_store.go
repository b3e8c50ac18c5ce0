package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/szrg/elastic-db-tools/shard"
)

type ShardStore struct {
	db   *bun.DB
	repo repository.Repository[*shardRecord]
}

func NewShardStore(db *bun.DB) (*ShardStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*shardRecord](db, shardHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid shard repository wiring: %w", err)
		}
	}
	return &ShardStore{db: db, repo: repo}, nil
}

func (s *ShardStore) Add(ctx context.Context, in shard.AddShardInput) (shard.Shard, error) {
	if s == nil || s.repo == nil {
		return shard.Shard{}, fmt.Errorf("sqlstore: shard store is not configured")
	}
	in.MapID = strings.TrimSpace(in.MapID)
	in.Location.Server = strings.TrimSpace(in.Location.Server)
	in.Location.Database = strings.TrimSpace(in.Location.Database)
	if err := in.Validate(); err != nil {
		return shard.Shard{}, err
	}
	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = shard.StatusOnline
	}
	in.Status = status

	existing, err := s.findByLocation(ctx, in.MapID, in.Location)
	if err != nil {
		return shard.Shard{}, err
	}
	if existing != nil {
		return shard.Shard{}, fmt.Errorf(
			"sqlstore: shard location %s is already registered in map %q",
			in.Location, in.MapID,
		)
	}

	record := newShardRecord(in, time.Now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return shard.Shard{}, err
	}
	return created.toDomain(), nil
}

func (s *ShardStore) Get(ctx context.Context, id string) (shard.Shard, error) {
	if s == nil || s.repo == nil {
		return shard.Shard{}, fmt.Errorf("sqlstore: shard store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return shard.Shard{}, err
	}
	return record.toDomain(), nil
}

func (s *ShardStore) ListByMap(ctx context.Context, mapID string) ([]shard.Shard, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: shard store is not configured")
	}
	trimmed := strings.TrimSpace(mapID)
	if trimmed == "" {
		return nil, fmt.Errorf("sqlstore: map id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("shard_map_id", "=", trimmed),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]shard.Shard, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *ShardStore) UpdateStatus(ctx context.Context, id string, status shard.Status, reason string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: shard store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return fmt.Errorf("sqlstore: shard id is required")
	}
	if err := status.Validate(); err != nil {
		return err
	}
	current, err := s.repo.GetByID(ctx, trimmedID)
	if err != nil {
		return err
	}
	current.Status = string(status)
	current.LastError = strings.TrimSpace(reason)
	current.UpdatedAt = time.Now().UTC()

	_, err = s.repo.Update(ctx, current, repository.UpdateByID(trimmedID))
	return err
}

func (s *ShardStore) Remove(ctx context.Context, id string) error {
	if s == nil || s.db == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: shard store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return fmt.Errorf("sqlstore: shard id is required")
	}
	current, err := s.repo.GetByID(ctx, trimmedID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	current.DeletedAt = &now
	current.UpdatedAt = now

	_, err = s.db.NewUpdate().
		Model(current).
		Column("deleted_at", "updated_at").
		Where("id = ?", trimmedID).
		Exec(ctx)
	return err
}

func (s *ShardStore) findByLocation(ctx context.Context, mapID string, location shard.Location) (*shardRecord, error) {
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("shard_map_id", "=", mapID),
		repository.SelectBy("server", "=", location.Server),
		repository.SelectBy("database_name", "=", location.Database),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.port = ?", location.Port).
				Where("?TableAlias.deleted_at IS NULL")
		}),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

var _ shard.Store = (*ShardStore)(nil)
