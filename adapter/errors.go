package adapter

import "fmt"

// ConfigError reports invalid adapter configuration: an unknown adapter or
// serializer name, or malformed options. Raised at construction, never
// during steady-state operation.
type ConfigError struct {
	Adapter string
	Reason  string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("polycache: %s adapter: %s: %v", e.Adapter, e.Reason, e.Err)
	}
	return fmt.Sprintf("polycache: %s adapter: %s", e.Adapter, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ConnError reports a failure while bringing up the backend connection.
// Stage names the setup step that failed (connect, auth, select) and Addr
// identifies the backend, so a raw client error never crosses the adapter
// boundary without context.
type ConnError struct {
	Backend string
	Addr    string
	Stage   string
	Err     error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("polycache: %s backend at %s: %s failed: %v", e.Backend, e.Addr, e.Stage, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }
