package shard

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MapKind distinguishes how a shard map routes keys to shards.
type MapKind string

const (
	MapKindList  MapKind = "list"
	MapKindRange MapKind = "range"
)

func (k MapKind) Validate() error {
	switch k {
	case MapKindList, MapKindRange:
		return nil
	default:
		return fmt.Errorf("shard: unknown map kind %q", string(k))
	}
}

// Status tracks whether a shard may serve traffic.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

func (s Status) Validate() error {
	switch s {
	case StatusOnline, StatusOffline:
		return nil
	default:
		return fmt.Errorf("shard: unknown shard status %q", string(s))
	}
}

// Map is a named collection of shard registrations.
type Map struct {
	ID        string
	Name      string
	Kind      MapKind
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Shard is one registered partition inside a map.
type Shard struct {
	ID        string
	MapID     string
	Location  Location
	Status    Status
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateMapInput struct {
	Name string
	Kind MapKind
}

func (in CreateMapInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("shard: map name is required")
	}
	return in.Kind.Validate()
}

type AddShardInput struct {
	MapID    string
	Location Location
	Status   Status
}

func (in AddShardInput) Validate() error {
	if strings.TrimSpace(in.MapID) == "" {
		return fmt.Errorf("shard: map id is required")
	}
	if err := in.Location.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(string(in.Status)) == "" {
		return nil
	}
	return in.Status.Validate()
}

// MapStore persists shard maps.
type MapStore interface {
	Create(ctx context.Context, in CreateMapInput) (Map, error)
	Get(ctx context.Context, id string) (Map, error)
	GetByName(ctx context.Context, name string) (Map, error)
	List(ctx context.Context) ([]Map, error)
}

// Store persists shard registrations.
type Store interface {
	Add(ctx context.Context, in AddShardInput) (Shard, error)
	Get(ctx context.Context, id string) (Shard, error)
	ListByMap(ctx context.Context, mapID string) ([]Shard, error)
	UpdateStatus(ctx context.Context, id string, status Status, reason string) error
	Remove(ctx context.Context, id string) error
}
