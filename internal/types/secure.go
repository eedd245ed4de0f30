package types

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds a sensitive configuration value (database URL,
// provider API key) and redacts itself through every accidental output
// path: fmt verbs resolve through String(), structured logs and config
// dumps through MarshalJSON(). The raw value is only reachable through
// an explicit Unmask() call at the point of use.
type SecretString string

// String returns the redacted placeholder, never the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON encodes the redacted placeholder, never the raw value.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw value. Call sites should be limited to wiring
// the secret into its consumer: the connection pool, the provider query
// string.
func (s SecretString) Unmask() string {
	return string(s)
}
