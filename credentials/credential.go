package credentials

// RedactedValue replaces secret material anywhere a secret could be rendered.
const RedactedValue = "[REDACTED]"

// Secret is an opaque wrapper around secret bytes. Every textual rendering
// (Stringer, GoStringer, text marshalling) yields RedactedValue so the
// plaintext cannot leak through logging or formatting. The plaintext is only
// reachable through Reveal.
type Secret struct {
	value []byte
}

// NewSecret copies value into a Secret. The caller may zero its own copy
// afterwards.
func NewSecret(value []byte) Secret {
	if len(value) == 0 {
		return Secret{}
	}
	return Secret{value: append([]byte(nil), value...)}
}

// Empty reports whether the secret carries no bytes.
func (s Secret) Empty() bool {
	return len(s.value) == 0
}

// Reveal returns the underlying secret bytes without copying. Callers hand
// the result straight to a driver; they must not retain or log it.
func (s Secret) Reveal() []byte {
	return s.value
}

func (s Secret) String() string {
	return RedactedValue
}

func (s Secret) GoString() string {
	return RedactedValue
}

func (s Secret) MarshalText() ([]byte, error) {
	return []byte(RedactedValue), nil
}

// Credential is an out-of-band, caller-owned credential: a username plus a
// protected secret. The resolver holds a reference to it and passes it
// through; it never copies the secret into a connection string, logs it, or
// persists it.
type Credential struct {
	userName string
	password Secret
}

// NewCredential builds a credential from a username and the secret bytes.
func NewCredential(userName string, password []byte) *Credential {
	return &Credential{
		userName: userName,
		password: NewSecret(password),
	}
}

// UserName returns the credential's username.
func (c *Credential) UserName() string {
	if c == nil {
		return ""
	}
	return c.userName
}

// Password returns the protected secret.
func (c *Credential) Password() Secret {
	if c == nil {
		return Secret{}
	}
	return c.password
}
