// Package elasticdbtools manages the credentials and connection strings of
// a shard map: a central database that records which shard holds which
// data, plus the per-shard databases it points at. The root package
// re-exports the resolver core and embeds the schema migrations; the
// manager package wires the core to a live database.
package elasticdbtools

import (
	"github.com/szrg/elastic-db-tools/credentials"
	"github.com/szrg/elastic-db-tools/shard"
)

type Secret = credentials.Secret

type Credential = credentials.Credential

type AuthMode = credentials.AuthMode

type Resolved = credentials.Resolved

type Location = shard.Location

type Map = shard.Map

type Shard = shard.Shard

var (
	NewSecret          = credentials.NewSecret
	NewCredential      = credentials.NewCredential
	ResolveCredentials = credentials.Resolve
)
