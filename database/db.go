package database

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the ledger database with pooling and retry. Connection
// parameters come from the environment; DB_DSN overrides everything.
func Connect() (*gorm.DB, error) {
	if DB != nil {
		return DB, nil
	}

	host := getenv("DB_HOST", "127.0.0.1")
	port := getenv("DB_PORT", "3306")
	user := getenv("DB_USER", "root")
	pass := getenv("DB_PASS", "")
	name := getenv("DB_NAME", "xentix")
	params := getenv("DB_PARAMS", "charset=utf8mb4&parseTime=True&loc=Local")

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		if !strings.Contains(params, "tls=") {
			switch getenv("DB_TLS", "false") {
			case "true", "preferred":
				params = params + "&tls=true"
			case "verify":
				params = params + "&tls=xentix"
			}
		}
		if !strings.Contains(params, "timeout=") {
			params = params + "&timeout=10s"
		}
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, name, params)
	}

	safeDSN := dsn
	if pass != "" {
		safeDSN = strings.Replace(safeDSN, pass, "******", 1)
	}
	log.Printf("[database] using DSN: %s", safeDSN)

	if strings.Contains(dsn, "tls=xentix") {
		if err := registerTLSConfig(); err != nil {
			return nil, err
		}
	}

	var gormLogger logger.Interface
	if strings.ToLower(getenv("ENV", "development")) == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	} else {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	maxRetries := atoi(getenv("DB_CONNECT_RETRIES", "5"))
	var db *gorm.DB
	var err error
	backoff := time.Second
	for attempt := 0; attempt < maxRetries; attempt++ {
		db, err = gorm.Open(gormmysql.Open(dsn), &gorm.Config{Logger: gormLogger})
		if err == nil {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(atoi(getenv("DB_MAX_OPEN_CONNS", "25")))
	sqlDB.SetMaxIdleConns(atoi(getenv("DB_MAX_IDLE_CONNS", "25")))
	sqlDB.SetConnMaxLifetime(time.Duration(atoi(getenv("DB_CONN_MAX_LIFETIME", "3600"))) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	DB = db
	return DB, nil
}

// registerTLSConfig installs a named TLS config on the mysql driver for
// strict certificate verification (DB_TLS=verify).
func registerTLSConfig() error {
	tlsCfg := &tls.Config{}
	if caPath := getenv("DB_TLS_CA_PATH", ""); caPath != "" {
		caCert, err := os.ReadFile(caPath)
		if err != nil {
			return fmt.Errorf("failed reading DB TLS CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return errors.New("failed to append CA certs")
		}
		tlsCfg.RootCAs = pool
	}
	clientCert := getenv("DB_TLS_CLIENT_CERT", "")
	clientKey := getenv("DB_TLS_CLIENT_KEY", "")
	if clientCert != "" && clientKey != "" {
		cert, err := tls.LoadX509KeyPair(clientCert, clientKey)
		if err != nil {
			return fmt.Errorf("failed to load client cert/key: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return mysqldriver.RegisterTLSConfig("xentix", tlsCfg)
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	if v <= 0 {
		return 0
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return def
}
