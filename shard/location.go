// Package shard holds the shard-side domain model: network locations of
// individual data partitions and the shard-map metadata records the store
// persists. A location is what turns the resolver's shard-scope connection
// template into a usable per-shard connection string.
package shard

import (
	"fmt"
	"strings"
)

// Protocol selects the client protocol prefix in a data source.
type Protocol string

const (
	ProtocolDefault    Protocol = ""
	ProtocolTCP        Protocol = "tcp"
	ProtocolNamedPipes Protocol = "np"
)

const maxPort = 65535

// Location identifies one shard's database: protocol, server, optional port,
// and database name. The zero value is invalid.
type Location struct {
	Protocol Protocol
	Server   string
	Port     int
	Database string
}

// NewLocation builds a default-protocol location.
func NewLocation(server string, database string) Location {
	return Location{Server: server, Database: database}
}

func (l Location) Validate() error {
	if strings.TrimSpace(l.Server) == "" {
		return fmt.Errorf("shard: location server is required")
	}
	if strings.TrimSpace(l.Database) == "" {
		return fmt.Errorf("shard: location database is required")
	}
	if l.Port < 0 || l.Port > maxPort {
		return fmt.Errorf("shard: location port %d is out of range", l.Port)
	}
	switch l.Protocol {
	case ProtocolDefault, ProtocolTCP, ProtocolNamedPipes:
	default:
		return fmt.Errorf("shard: unknown protocol %q", string(l.Protocol))
	}
	return nil
}

// DataSource renders the location in data-source form: an optional protocol
// prefix, then server, then ",port" when a port is set.
func (l Location) DataSource() string {
	var builder strings.Builder
	if l.Protocol != ProtocolDefault {
		builder.WriteString(string(l.Protocol))
		builder.WriteString(":")
	}
	builder.WriteString(strings.TrimSpace(l.Server))
	if l.Port > 0 {
		builder.WriteString(",")
		builder.WriteString(fmt.Sprint(l.Port))
	}
	return builder.String()
}

// String follows the diagnostics format the credentials resolver uses for
// the metadata database, so both read the same way in logs.
func (l Location) String() string {
	return fmt.Sprintf("[DataSource=%s Database=%s]", l.DataSource(), strings.TrimSpace(l.Database))
}
