// Package connstring parses and renders ADO-style connection strings:
// semicolon-separated key=value pairs with case-insensitive keys,
// last-write-wins duplicate handling, and quote escaping for values that
// carry reserved characters. The descriptor keeps first-appearance key order
// so derived strings stay recognizable next to the caller's input.
package connstring

import (
	"fmt"
	"strings"
)

// Canonical spellings for the keys this library interprets. Every other key
// passes through verbatim.
const (
	KeyDataSource         = "Data Source"
	KeyInitialCatalog     = "Initial Catalog"
	KeyUserID             = "User ID"
	KeyPassword           = "Password"
	KeyIntegratedSecurity = "Integrated Security"
	KeyAuthentication     = "Authentication"
	KeyApplicationName    = "Application Name"
)

// Descriptor is an ordered key/value view of a connection string. The zero
// value is empty and usable.
type Descriptor struct {
	order  []string
	values map[string]entry
}

type entry struct {
	display string
	value   string
}

// synonyms maps normalized alternate spellings onto the canonical key. The
// set mirrors the aliases the SQL Server ecosystem accepts in ADO strings.
var synonyms = map[string]string{
	"server":             KeyDataSource,
	"address":            KeyDataSource,
	"addr":               KeyDataSource,
	"network address":    KeyDataSource,
	"database":           KeyInitialCatalog,
	"uid":                KeyUserID,
	"user":               KeyUserID,
	"pwd":                KeyPassword,
	"trusted_connection": KeyIntegratedSecurity,
	"app name":           KeyApplicationName,
}

var canonicalDisplay = map[string]string{
	normalizeKey(KeyDataSource):         KeyDataSource,
	normalizeKey(KeyInitialCatalog):     KeyInitialCatalog,
	normalizeKey(KeyUserID):             KeyUserID,
	normalizeKey(KeyPassword):           KeyPassword,
	normalizeKey(KeyIntegratedSecurity): KeyIntegratedSecurity,
	normalizeKey(KeyAuthentication):     KeyAuthentication,
	normalizeKey(KeyApplicationName):    KeyApplicationName,
}

func normalizeKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(key))), " ")
}

// canonicalKey resolves synonyms and collapses case/whitespace so that
// "SERVER", "server" and "Network Address" all address Data Source.
func canonicalKey(key string) string {
	normalized := normalizeKey(key)
	if canonical, ok := synonyms[normalized]; ok {
		return normalizeKey(canonical)
	}
	return normalized
}

func displayKey(key string) string {
	canonical := canonicalKey(key)
	if display, ok := canonicalDisplay[canonical]; ok {
		return display
	}
	return strings.TrimSpace(key)
}

// New returns an empty descriptor.
func New() *Descriptor {
	return &Descriptor{values: map[string]entry{}}
}

// Len reports the number of distinct keys.
func (d *Descriptor) Len() int {
	if d == nil {
		return 0
	}
	return len(d.order)
}

// Keys returns the display spellings in first-appearance order.
func (d *Descriptor) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.order))
	for _, canonical := range d.order {
		keys = append(keys, d.values[canonical].display)
	}
	return keys
}

// Get returns the value for key, or the empty string when absent.
func (d *Descriptor) Get(key string) string {
	value, _ := d.Lookup(key)
	return value
}

// Lookup returns the value for key and whether the key is present.
func (d *Descriptor) Lookup(key string) (string, bool) {
	if d == nil || d.values == nil {
		return "", false
	}
	item, ok := d.values[canonicalKey(key)]
	return item.value, ok
}

// Has reports whether key is present, regardless of its value.
func (d *Descriptor) Has(key string) bool {
	_, ok := d.Lookup(key)
	return ok
}

// Set stores value under key, replacing an existing value in place so key
// order does not change on overwrite.
func (d *Descriptor) Set(key string, value string) {
	if d == nil {
		return
	}
	if d.values == nil {
		d.values = map[string]entry{}
	}
	canonical := canonicalKey(key)
	if canonical == "" {
		return
	}
	if existing, ok := d.values[canonical]; ok {
		existing.value = value
		d.values[canonical] = existing
		return
	}
	d.order = append(d.order, canonical)
	d.values[canonical] = entry{display: displayKey(key), value: value}
}

// Delete removes key entirely.
func (d *Descriptor) Delete(key string) {
	if d == nil || d.values == nil {
		return
	}
	canonical := canonicalKey(key)
	if _, ok := d.values[canonical]; !ok {
		return
	}
	delete(d.values, canonical)
	for i, existing := range d.order {
		if existing == canonical {
			d.order = append(d.order[:i:i], d.order[i+1:]...)
			break
		}
	}
}

// Clone returns an independent copy.
func (d *Descriptor) Clone() *Descriptor {
	clone := New()
	if d == nil {
		return clone
	}
	clone.order = append([]string(nil), d.order...)
	clone.values = make(map[string]entry, len(d.values))
	for key, value := range d.values {
		clone.values[key] = value
	}
	return clone
}

// Bool interprets the value under key as an ADO boolean. "sspi" counts as
// true because Integrated Security accepts it.
func (d *Descriptor) Bool(key string) bool {
	value, ok := d.Lookup(key)
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1", "sspi":
		return true
	default:
		return false
	}
}

// String renders the descriptor back into connection-string form. The output
// re-parses to an equal descriptor.
func (d *Descriptor) String() string {
	if d == nil || len(d.order) == 0 {
		return ""
	}
	var builder strings.Builder
	for i, canonical := range d.order {
		if i > 0 {
			builder.WriteString(";")
		}
		item := d.values[canonical]
		builder.WriteString(escapeKey(item.display))
		builder.WriteString("=")
		builder.WriteString(escapeValue(item.value))
	}
	return builder.String()
}

func escapeKey(key string) string {
	return strings.ReplaceAll(key, "=", "==")
}

func escapeValue(value string) string {
	if value == "" {
		return value
	}
	needsQuoting := strings.ContainsAny(value, ";'\"") ||
		value != strings.TrimSpace(value)
	if !needsQuoting {
		return value
	}
	if strings.Contains(value, "\"") && !strings.Contains(value, "'") {
		return "'" + value + "'"
	}
	return "\"" + strings.ReplaceAll(value, "\"", "\"\"") + "\""
}

// ParseError describes input that does not follow the connection-string
// grammar. Offset is a byte position into the raw input.
type ParseError struct {
	Offset int
	Detail string
}

func (e *ParseError) Error() string {
	if e == nil {
		return "connstring: malformed connection string"
	}
	return fmt.Sprintf("connstring: malformed connection string at offset %d: %s", e.Offset, e.Detail)
}

// Parse reads an ADO-style connection string. Keys are case-insensitive and
// duplicate keys apply last-write-wins. Values may be wrapped in single or
// double quotes; a doubled quote of the wrapping kind embeds that quote. A
// doubled "==" inside a key embeds a literal "=".
func Parse(raw string) (*Descriptor, error) {
	descriptor := New()
	input := raw
	pos := 0

	for pos < len(input) {
		for pos < len(input) && (input[pos] == ';' || input[pos] == ' ' || input[pos] == '\t') {
			pos++
		}
		if pos >= len(input) {
			break
		}

		keyStart := pos
		var keyBuilder strings.Builder
		foundSeparator := false
		for pos < len(input) {
			ch := input[pos]
			if ch == '=' {
				if pos+1 < len(input) && input[pos+1] == '=' {
					keyBuilder.WriteByte('=')
					pos += 2
					continue
				}
				pos++
				foundSeparator = true
				break
			}
			if ch == ';' {
				break
			}
			keyBuilder.WriteByte(ch)
			pos++
		}
		key := strings.TrimSpace(keyBuilder.String())
		if !foundSeparator {
			return nil, &ParseError{Offset: keyStart, Detail: fmt.Sprintf("expected key=value, got %q", key)}
		}
		if key == "" {
			return nil, &ParseError{Offset: keyStart, Detail: "empty key"}
		}

		value, next, err := parseValue(input, pos)
		if err != nil {
			return nil, err
		}
		pos = next
		descriptor.Set(key, value)
	}
	return descriptor, nil
}

func parseValue(input string, pos int) (string, int, error) {
	for pos < len(input) && (input[pos] == ' ' || input[pos] == '\t') {
		pos++
	}
	if pos >= len(input) || input[pos] == ';' {
		return "", pos, nil
	}

	if quote := input[pos]; quote == '\'' || quote == '"' {
		openedAt := pos
		pos++
		var value strings.Builder
		for pos < len(input) {
			ch := input[pos]
			if ch == quote {
				if pos+1 < len(input) && input[pos+1] == quote {
					value.WriteByte(quote)
					pos += 2
					continue
				}
				pos++
				// only whitespace may sit between the closing quote and the
				// next separator
				for pos < len(input) && (input[pos] == ' ' || input[pos] == '\t') {
					pos++
				}
				if pos < len(input) && input[pos] != ';' {
					return "", pos, &ParseError{Offset: pos, Detail: "unexpected content after closing quote"}
				}
				return value.String(), pos, nil
			}
			value.WriteByte(ch)
			pos++
		}
		return "", openedAt, &ParseError{Offset: openedAt, Detail: "unterminated quoted value"}
	}

	start := pos
	for pos < len(input) && input[pos] != ';' {
		pos++
	}
	return strings.TrimSpace(input[start:pos]), pos, nil
}
