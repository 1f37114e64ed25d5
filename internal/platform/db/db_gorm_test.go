package db

import (
	"testing"
	"time"
)

type sampleModel struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

// TestOpenInMemory はインメモリDBが開けてマイグレーションされることを検証します。
func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory(&sampleModel{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := db.Create(&sampleModel{Name: "a"}).Error; err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	var n int64
	if err := db.Model(&sampleModel{}).Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n < 1 {
		t.Errorf("expected at least 1 row, got %d", n)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("expected max open connections 1, got %d", got)
	}
}

// TestOpenInMemory_NoRetryDelay は起動時に待機を挟まず開けることを検証します。
func TestOpenInMemory_NoRetryDelay(t *testing.T) {
	start := time.Now()
	if _, err := OpenInMemory(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("open took %s", elapsed)
	}
}
