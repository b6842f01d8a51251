package database

import (
	"testing"
)

func TestNewGormConnectionSQLite(t *testing.T) {
	db, err := NewGormConnection(Config{Driver: DriverSQLite})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	var one int
	if err := db.Raw("SELECT 1").Scan(&one).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	if one != 1 {
		t.Fatalf("expected 1, got %d", one)
	}
}

func TestNewGormConnectionRejectsUnknownDriver(t *testing.T) {
	if _, err := NewGormConnection(Config{Driver: "oracle"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "dispensary", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=dispensary sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}
