package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Dialect(cfg Config) (gorm.Dialector, error) {
	if url := strings.TrimSpace(cfg.URL); url != "" {
		switch {
		case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
			return postgres.Open(url), nil
		case strings.HasPrefix(url, "sqlite://"):
			return sqlite.Open(sqliteDSN(strings.TrimPrefix(url, "sqlite://"))), nil
		}
	}

	switch cfg.Type {
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)), nil
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.Port,
			cfg.SSLMode,
		)), nil
	case "sqlite":
		path := strings.TrimSpace(cfg.SQLitePath)
		if path == "" {
			path = "healx.db"
		}
		return sqlite.Open(sqliteDSN(path)), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.Type)
	}
}

// sqliteDSN makes writers wait for the lock and take it at BEGIN, so
// concurrent transactions queue instead of failing with "database is locked".
// A DSN that already carries parameters is left alone.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_txlock=immediate"
}
