// Package credentials validates a shard-map-manager connection descriptor
// against exactly one supported authentication mode and derives the two
// connection representations the rest of the system runs on: a
// manager-scope connection string aimed at the metadata database and a
// shard-scope connection-string template awaiting per-shard location
// injection. Resolution is a pure transform; it opens no connections and
// never copies a secure credential's secret into a string.
package credentials

import (
	"fmt"
	"strings"

	"github.com/szrg/elastic-db-tools/connstring"
	"github.com/szrg/elastic-db-tools/shard"
)

const (
	// ActiveDirectoryIntegratedMarker is the Authentication value selecting
	// directory-integrated authentication. Comparison ignores case and
	// spaces, so "Active Directory Integrated" matches too.
	ActiveDirectoryIntegratedMarker = "ActiveDirectoryIntegrated"

	// ScopeSuffixDelimiter separates a user-chosen application name from the
	// scope marker appended to it.
	ScopeSuffixDelimiter = "|"

	// ManagerScopeSuffix marks connections aimed at the shard map manager's
	// metadata database.
	ManagerScopeSuffix = ScopeSuffixDelimiter + "SMM"

	// ShardScopeSuffix marks connections derived from the shard template.
	ShardScopeSuffix = ScopeSuffixDelimiter + "SHARD"

	// MaxApplicationNameLength bounds the rewritten application name; when a
	// suffix would push past it the original name is kept unchanged.
	MaxApplicationNameLength = 128
)

// Resolved is the immutable output of Resolve. It is safe to share across
// goroutines once constructed.
type Resolved struct {
	manager       string
	shardTemplate *connstring.Descriptor
	shardRendered string
	credential    *Credential
	location      string
	mode          AuthMode
}

// ManagerConnectionString returns the connection string for the metadata
// database, with the manager scope marker on Application Name.
func (r Resolved) ManagerConnectionString() string {
	return r.manager
}

// ShardConnectionString returns the shard-scope template. It carries no
// Data Source or Initial Catalog, so it cannot be mistaken for a directly
// usable connection string.
func (r Resolved) ShardConnectionString() string {
	return r.shardRendered
}

// Credential returns the secure credential supplied to Resolve, or nil.
func (r Resolved) Credential() *Credential {
	return r.credential
}

// Location is a fixed-format diagnostics summary of the metadata database
// location. It is for logging only, never for connecting.
func (r Resolved) Location() string {
	return r.location
}

// Mode reports the authentication mode the descriptor resolved to.
func (r Resolved) Mode() AuthMode {
	return r.mode
}

// ShardConnection combines the shard template with a shard's location,
// producing the connection string for that shard.
func (r Resolved) ShardConnection(location shard.Location) (string, error) {
	if r.shardTemplate == nil {
		return "", fmt.Errorf("credentials: resolved value is empty")
	}
	if err := location.Validate(); err != nil {
		return "", err
	}
	descriptor := r.shardTemplate.Clone()
	descriptor.Set(connstring.KeyDataSource, location.DataSource())
	descriptor.Set(connstring.KeyInitialCatalog, strings.TrimSpace(location.Database))
	return descriptor.String(), nil
}

// Resolve parses raw, checks the credential-consistency contract, and
// derives the manager and shard connection representations. credential may
// be nil; when present its secret stays out of every derived string.
func Resolve(raw string, credential *Credential) (Resolved, error) {
	if strings.TrimSpace(raw) == "" {
		return Resolved{}, malformedConnectionString(fmt.Errorf("connection string is empty"))
	}
	descriptor, err := connstring.Parse(raw)
	if err != nil {
		return Resolved{}, malformedConnectionString(err)
	}

	dataSource := strings.TrimSpace(descriptor.Get(connstring.KeyDataSource))
	if dataSource == "" {
		return Resolved{}, missingRequiredField(connstring.KeyDataSource)
	}
	initialCatalog := strings.TrimSpace(descriptor.Get(connstring.KeyInitialCatalog))
	if initialCatalog == "" {
		return Resolved{}, missingRequiredField(connstring.KeyInitialCatalog)
	}

	mode, err := ensureConsistency(descriptor, credential)
	if err != nil {
		return Resolved{}, err
	}

	baseAppName := descriptor.Get(connstring.KeyApplicationName)

	manager := descriptor.Clone()
	manager.Set(connstring.KeyApplicationName, appendScopeSuffix(baseAppName, ManagerScopeSuffix))

	template := descriptor.Clone()
	template.Delete(connstring.KeyDataSource)
	template.Delete(connstring.KeyInitialCatalog)
	template.Set(connstring.KeyApplicationName, appendScopeSuffix(baseAppName, ShardScopeSuffix))

	return Resolved{
		manager:       manager.String(),
		shardTemplate: template,
		shardRendered: template.String(),
		credential:    credential,
		location:      fmt.Sprintf("[DataSource=%s Database=%s]", dataSource, initialCatalog),
		mode:          mode,
	}, nil
}

// ensureConsistency enforces the one-channel credential contract. The rules
// run in order and the first match wins: an integrated mode bypasses the
// field checks entirely; password mode requires inline user id and password;
// credential mode forbids both.
func ensureConsistency(descriptor *connstring.Descriptor, credential *Credential) (AuthMode, error) {
	if descriptor.Bool(connstring.KeyIntegratedSecurity) {
		return AuthModeIntegrated, nil
	}
	if isActiveDirectoryIntegrated(descriptor.Get(connstring.KeyAuthentication)) {
		return AuthModeActiveDirectoryIntegrated, nil
	}
	if credential == nil {
		if strings.TrimSpace(descriptor.Get(connstring.KeyUserID)) == "" {
			return "", missingRequiredField(connstring.KeyUserID)
		}
		if strings.TrimSpace(descriptor.Get(connstring.KeyPassword)) == "" {
			return "", missingRequiredField(connstring.KeyPassword)
		}
		return AuthModeUserPassword, nil
	}
	if strings.TrimSpace(descriptor.Get(connstring.KeyUserID)) != "" {
		return "", disallowedField(connstring.KeyUserID)
	}
	if strings.TrimSpace(descriptor.Get(connstring.KeyPassword)) != "" {
		return "", disallowedField(connstring.KeyPassword)
	}
	return AuthModeCredential, nil
}

func isActiveDirectoryIntegrated(value string) bool {
	normalized := strings.ToLower(strings.Join(strings.Fields(value), ""))
	return normalized == strings.ToLower(ActiveDirectoryIntegratedMarker)
}

// appendScopeSuffix rewrites an application name with a scope marker. A name
// that already ends with the marker is left alone, and a rewrite that would
// exceed MaxApplicationNameLength keeps the original name.
func appendScopeSuffix(base string, suffix string) string {
	if strings.HasSuffix(base, suffix) {
		return base
	}
	if len(base)+len(suffix) > MaxApplicationNameLength {
		return base
	}
	return base + suffix
}
