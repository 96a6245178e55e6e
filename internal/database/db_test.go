package database

import (
	"testing"

	"github.com/iliyamo/cinema-ticket-simulator/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := config.Config{DBUser: "sim", DBHost: "db", DBPort: "3306", DBName: "runs"}
	want := "sim@tcp(db:3306)/runs?charset=utf8mb4&parseTime=true&loc=UTC"
	if got := DSN(cfg); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	cfg.DBPass = "pw"
	want = "sim:pw@tcp(db:3306)/runs?charset=utf8mb4&parseTime=true&loc=UTC"
	if got := DSN(cfg); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
