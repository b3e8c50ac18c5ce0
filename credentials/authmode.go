package credentials

// AuthMode identifies how a connection authenticates. It is derived from the
// descriptor's flags and the presence of a credential object, never stored.
type AuthMode string

const (
	// AuthModeIntegrated trusts the calling OS identity (Integrated
	// Security / trusted connection).
	AuthModeIntegrated AuthMode = "integrated"
	// AuthModeActiveDirectoryIntegrated delegates to the directory-joined
	// environment identity.
	AuthModeActiveDirectoryIntegrated AuthMode = "active_directory_integrated"
	// AuthModeUserPassword carries an inline user id and password in the
	// connection string.
	AuthModeUserPassword AuthMode = "user_password"
	// AuthModeCredential uses an out-of-band credential object.
	AuthModeCredential AuthMode = "credential"
)

func (m AuthMode) Description() string {
	switch m {
	case AuthModeIntegrated:
		return "Integrated security"
	case AuthModeActiveDirectoryIntegrated:
		return "Active Directory integrated"
	case AuthModeUserPassword:
		return "User id and password"
	case AuthModeCredential:
		return "Secure credential object"
	default:
		return "Unknown"
	}
}
