package db

import (
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmehdipour/washcorner-notify/internal/config"
	"github.com/jmoiron/sqlx"
)

// NewMySQLConnection opens the transactional store (transactions, customers,
// services, outbox, notification_log). The DSN should carry parseTime=true.
func NewMySQLConnection(c config.DatabaseConfig) (*sqlx.DB, error) {
	return open("mysql", c.DSN, PoolOptsFrom(c), 5*time.Second)
}
