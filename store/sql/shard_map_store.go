// Package sqlstore persists shard-map metadata through bun repositories. It
// targets the shard map manager's metadata database (SQL Server in
// production, SQLite in tests) and never sees connection credentials; those
// stay with the credentials resolver.
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

type ShardMapStore struct {
	db   *bun.DB
	repo repository.Repository[*shardMapRecord]
}

func NewShardMapStore(db *bun.DB) (*ShardMapStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*shardMapRecord](db, shardMapHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid shard map repository wiring: %w", err)
		}
	}
	return &ShardMapStore{db: db, repo: repo}, nil
}

func (s *ShardMapStore) Create(ctx context.Context, in shard.CreateMapInput) (shard.Map, error) {
	if s == nil || s.repo == nil {
		return shard.Map{}, fmt.Errorf("sqlstore: shard map store is not configured")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return shard.Map{}, err
	}

	record := newShardMapRecord(in, time.Now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return shard.Map{}, err
	}
	return created.toDomain(), nil
}

func (s *ShardMapStore) Get(ctx context.Context, id string) (shard.Map, error) {
	if s == nil || s.repo == nil {
		return shard.Map{}, fmt.Errorf("sqlstore: shard map store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return shard.Map{}, err
	}
	return record.toDomain(), nil
}

func (s *ShardMapStore) GetByName(ctx context.Context, name string) (shard.Map, error) {
	if s == nil || s.repo == nil {
		return shard.Map{}, fmt.Errorf("sqlstore: shard map store is not configured")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return shard.Map{}, fmt.Errorf("sqlstore: shard map name is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("name", "=", trimmed),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
	)
	if err != nil {
		return shard.Map{}, err
	}
	if len(records) == 0 {
		return shard.Map{}, fmt.Errorf("sqlstore: shard map %q not found", trimmed)
	}
	return records[0].toDomain(), nil
}

func (s *ShardMapStore) List(ctx context.Context) ([]shard.Map, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: shard map store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]shard.Map, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

var _ shard.MapStore = (*ShardMapStore)(nil)
