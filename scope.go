package sprout

import (
	"encoding/json"
	"fmt"
)

// Scope specifies how many instances of a bean a context creates.
type Scope int

const (
	// Singleton specifies that exactly one instance of the bean exists per context.
	// The instance is created on first request, or eagerly during refresh, and
	// cached until the context is closed.
	Singleton Scope = iota

	// Prototype is reserved. Definitions may carry it, but requesting such a
	// bean fails with UnsupportedScopeError.
	Prototype
)

// String returns the string representation of the Scope.
func (s Scope) String() string {
	switch s {
	case Singleton:
		return "Singleton"
	case Prototype:
		return "Prototype"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// IsValid checks if the scope is one of the declared values.
func (s Scope) IsValid() bool {
	return s >= Singleton && s <= Prototype
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Singleton", "singleton":
		*s = Singleton
	case "Prototype", "prototype":
		*s = Prototype
	default:
		return fmt.Errorf("invalid bean scope: %q", string(text))
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scope) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	return s.UnmarshalText([]byte(str))
}
