package db

import (
	"fmt"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter atomic.Int64

// UseTestDatabase swaps the package connection for a fresh in-memory sqlite
// database with migrations applied. Each call gets its own database so tests
// stay isolated. The shared cache keeps every pooled connection pointed at
// the same in-memory store.
func UseTestDatabase() error {
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", testDBCounter.Add(1))

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})

	if err != nil {
		return err
	}

	DB = conn

	return MigrateDatabase()
}
