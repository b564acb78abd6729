package migration

import (
	"fmt"

	appconfig "github.com/BaSui01/claritycast/config"
)

// NewMigratorFromConfig creates a new migrator from application configuration
func NewMigratorFromConfig(cfg *appconfig.Config) (*DefaultMigrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return NewMigratorFromDatabaseConfig(cfg.Database)
}

// NewMigratorFromDatabaseConfig creates a new migrator from database configuration
func NewMigratorFromDatabaseConfig(dbCfg appconfig.DatabaseConfig) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(dbCfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	return NewMigrator(&Config{
		DatabaseType: dbType,
		DatabaseURL:  MigrationURL(dbType, dbCfg),
		TableName:    "schema_migrations",
	})
}

// MigrationURL returns the URL golang-migrate connects with. An explicit DSN
// wins; otherwise the URL is built from the individual fields.
func MigrationURL(dbType DatabaseType, dbCfg appconfig.DatabaseConfig) string {
	if dbCfg.DSN != "" {
		return dbCfg.DSN
	}
	switch dbType {
	case DatabaseTypePostgres:
		return BuildDatabaseURL(dbType, dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.User, dbCfg.Password, dbCfg.SSLMode)
	case DatabaseTypeMySQL:
		return BuildDatabaseURL(dbType, dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.User, dbCfg.Password, "")
	default:
		return BuildDatabaseURL(dbType, "", 0, dbCfg.Name, "", "", "")
	}
}
