package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/szrg/elastic-db-tools/shard"
)

type shardMapRecord struct {
	bun.BaseModel `bun:"table:shard_maps,alias:sm"`

	ID        string     `bun:"id,pk"`
	Name      string     `bun:"name,notnull"`
	Kind      string     `bun:"kind,notnull"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete"`
}

func newShardMapRecord(in shard.CreateMapInput, now time.Time) *shardMapRecord {
	return &shardMapRecord{
		Name:      in.Name,
		Kind:      string(in.Kind),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *shardMapRecord) toDomain() shard.Map {
	if r == nil {
		return shard.Map{}
	}
	return shard.Map{
		ID:        r.ID,
		Name:      r.Name,
		Kind:      shard.MapKind(r.Kind),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type shardRecord struct {
	bun.BaseModel `bun:"table:shards,alias:s"`

	ID         string     `bun:"id,pk"`
	ShardMapID string     `bun:"shard_map_id,notnull"`
	Protocol   string     `bun:"protocol"`
	Server     string     `bun:"server,notnull"`
	Port       int        `bun:"port"`
	Database   string     `bun:"database_name,notnull"`
	Status     string     `bun:"status,notnull"`
	LastError  string     `bun:"last_error"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt  *time.Time `bun:"deleted_at,soft_delete"`
}

func newShardRecord(in shard.AddShardInput, now time.Time) *shardRecord {
	return &shardRecord{
		ShardMapID: in.MapID,
		Protocol:   string(in.Location.Protocol),
		Server:     in.Location.Server,
		Port:       in.Location.Port,
		Database:   in.Location.Database,
		Status:     string(in.Status),
		LastError:  "",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *shardRecord) toDomain() shard.Shard {
	if r == nil {
		return shard.Shard{}
	}
	return shard.Shard{
		ID:    r.ID,
		MapID: r.ShardMapID,
		Location: shard.Location{
			Protocol: shard.Protocol(r.Protocol),
			Server:   r.Server,
			Port:     r.Port,
			Database: r.Database,
		},
		Status:    shard.Status(r.Status),
		LastError: r.LastError,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
