package config

import (
	"fmt"
	"net/url"
	"strings"

	"natours/models"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// SeedDatabase creates the configured admin account when no admin exists yet.
func SeedDatabase(db *gorm.DB, seed SeedConfig, log zerolog.Logger) {
	if seed.AdminEmail == "" || seed.AdminPassword == "" {
		return
	}

	var adminCount int64
	db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&adminCount)
	if adminCount > 0 {
		return
	}

	admin := models.User{
		Name:   seed.AdminName,
		Email:  seed.AdminEmail,
		Role:   models.RoleAdmin,
		Active: true,
	}
	if err := admin.SetPassword(seed.AdminPassword, true); err != nil {
		log.Warn().Err(err).Msg("failed to hash default admin password")
		return
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Warn().Err(err).Msg("failed to create default admin")
		return
	}
	log.Info().Str("email", admin.Email).Msg("default admin seeded")
}

func mysqlDSNFromURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", "", fmt.Errorf("mysql url missing database name")
	}

	q := u.Query()
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "True")
	}
	if q.Get("loc") == "" {
		q.Set("loc", "UTC")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, dbName, q.Encode())
	return dsn, dbName, nil
}

func resolveMySQLDSN(cfg DatabaseConfig) (string, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			dsn, _, err := mysqlDSNFromURL(raw)
			return dsn, err
		}
		return raw, nil
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name,
	)
	return dsn, nil
}

func resolvePostgresDSN(cfg DatabaseConfig) string {
	if raw := strings.TrimSpace(cfg.URL); raw != "" {
		return raw
	}
	port := cfg.Port
	if port == "" || port == "3306" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.Host, port, cfg.User, cfg.Password, cfg.Name,
	)
}

func dialector(cfg DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		dsn, err := resolveMySQLDSN(cfg)
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(resolvePostgresDSN(cfg)), nil
	case "sqlite":
		path := strings.TrimSpace(cfg.URL)
		if path == "" {
			path = cfg.Name + ".db"
		}
		return sqlite.Open(path), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// OpenDatabase opens a connection for the configured driver and applies pool
// limits. SQLite is pinned to one connection so ":memory:" databases are
// shared by every query.
func OpenDatabase(cfg DatabaseConfig, gl gormlogger.Interface) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{Logger: gl})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", cfg.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}
	return db, nil
}

// Migrate creates or updates the schema, parents first.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Tour{},
		&models.Review{},
		&models.Booking{},
	)
}

// ConnectDatabase opens, migrates and seeds the database and stores it in DB.
func ConnectDatabase(cfg *Config, gl gormlogger.Interface, log zerolog.Logger) error {
	db, err := OpenDatabase(cfg.Database, gl)
	if err != nil {
		return err
	}

	if err := Migrate(db); err != nil {
		return errors.Wrap(err, "auto migrate")
	}

	DB = db
	SeedDatabase(db, cfg.Seed, log)
	return nil
}
