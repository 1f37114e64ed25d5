// Package db opens the process-local SQLite database that holds forecast jobs.
package db

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InMemoryDSN は名前付きの共有インメモリDBです。プロセス終了で内容は消えます。
const InMemoryDSN = "file:stock_forecast?mode=memory&cache=shared"

// openSQLite はSQLiteドライバーでDBを開きます。SQLログは警告以上のみ出力します。
func openSQLite(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// OpenInMemory はインメモリDBを開き、modelsをマイグレーションします。
// インメモリDBは接続ごとに別物になり得るため、接続数を1に固定します。
func OpenInMemory(models ...any) (*gorm.DB, error) {
	db, err := openSQLite(InMemoryDSN)
	if err != nil {
		return nil, fmt.Errorf("open in-memory db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	slog.Info("in-memory database ready", "tables", len(models))
	return db, nil
}
