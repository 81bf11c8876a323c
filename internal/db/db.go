package db

import (
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"golang.org/x/term"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"examdesk-backend/internal/config"
)

var gormDB *gorm.DB

// InitDBFromConfig opens the database described by the loaded config and
// applies pool settings. The password may come from the config file, an
// environment variable, or a terminal prompt depending on PASSWORD TYPE.
func InitDBFromConfig(cfg *config.APIConfig) {
	password, err := resolvePassword(cfg.DB.Password)
	if err != nil {
		log.Fatalf("failed to resolve DB password: %v", err)
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		cfg.DB.Host, cfg.DB.Username, password, cfg.DB.Name, cfg.DB.Port, cfg.DB.SSLMode, cfg.Context.TimeZone)

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatalf("failed to access underlying sql.DB: %v", err)
	}
	if cfg.DB.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DB.Pool.MaxOpenConns)
	}
	if cfg.DB.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DB.Pool.MaxIdleConns)
	}
	if cfg.DB.Pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DB.Pool.ConnMaxLifetime) * time.Second)
	}

	gormDB = conn
}

func resolvePassword(pw config.DBPassword) (string, error) {
	switch pw.Type {
	case "", "plain":
		return pw.Value, nil
	case "env":
		val, ok := os.LookupEnv(pw.Value)
		if !ok {
			return "", fmt.Errorf("environment variable %s is not set", pw.Value)
		}
		return val, nil
	case "prompt":
		fmt.Print("DB password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unknown password type %q", pw.Type)
	}
}

// GetDB returns the shared connection.
func GetDB() *gorm.DB {
	return gormDB
}

// SetDB overrides the shared connection. Used by tests to point the
// repositories at a throwaway database.
func SetDB(conn *gorm.DB) {
	gormDB = conn
}
