package sqlite

import "time"

// Default configuration values.
const (
	DefaultPath         = "wi.db"
	DefaultBusyTimeout  = 5 * time.Second
	DefaultMaxOpenConns = 1
)

// Config configures a Store.
type Config struct {
	// Path is the database file. Relative paths resolve against the
	// working directory.
	Path string

	// BusyTimeout is how long a statement waits on a locked database.
	BusyTimeout time.Duration

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int
}

// DefaultConfig returns the default SQLite configuration.
func DefaultConfig() Config {
	return Config{
		Path:         DefaultPath,
		BusyTimeout:  DefaultBusyTimeout,
		MaxOpenConns: DefaultMaxOpenConns,
	}
}
