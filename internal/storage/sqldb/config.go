package sqldb

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config holds SQL connection settings
type Config struct {
	// Driver is the database/sql driver name ("sqlite3" or "postgres")
	Driver string `yaml:"driver"`
	// DSN is the driver-specific data source name
	DSN string `yaml:"dsn"`
	// MaxOpenConns caps the connection pool. SQLite in-memory databases
	// must use 1 so every query sees the same database.
	MaxOpenConns int `yaml:"max_open_conns"`
}

// DefaultConfig returns a file-backed SQLite configuration
func DefaultConfig() Config {
	return Config{
		Driver:       DriverSQLite,
		DSN:          "quizcore.db",
		MaxOpenConns: 1,
	}
}
