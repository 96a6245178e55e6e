package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env here
	for _, k := range []string{"APP_PORT", "DB_HOST", "RABBITMQ_URL", "AMQP_URL", "SIM_TICK_INTERVAL", "SIM_INTERACTIVE", "OPERATOR_PASSWORD_HASH", "JWT_SECRET"} {
		t.Setenv(k, "")
	}
	c := Load()
	if c.Port != "" || c.DBHost != "" || c.RabbitURL != "" {
		t.Fatalf("adapters should default to disabled: %+v", c)
	}
	if c.TickInterval != time.Second || c.ShowTime != "10:00 AM" || !c.Interactive {
		t.Fatalf("unexpected simulation defaults: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.OperatorEnabled() {
		t.Fatal("operator login must be off without a password hash")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("SIM_SHOW_TIME", "")
	// godotenv does not override variables that are already set, so make
	// sure the key is absent rather than empty.
	os.Unsetenv("SIM_SHOW_TIME")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SIM_SHOW_TIME=9:30 PM\nAMQP_URL=amqp://x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RABBITMQ_URL", "")
	os.Unsetenv("AMQP_URL")
	t.Cleanup(func() { os.Unsetenv("AMQP_URL") })

	c := Load()
	if c.ShowTime != "9:30 PM" || c.RabbitURL != "amqp://x" {
		t.Fatalf("values from .env not applied: show=%q rabbit=%q", c.ShowTime, c.RabbitURL)
	}
}

func TestValidateRequiresSecretWithOperator(t *testing.T) {
	c := Config{OperatorHash: "$2a$10$abc"}
	if err := c.Validate(); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("got %v, want ErrMissingSecret", err)
	}
	c.JWTSecret = "s"
	if err := c.Validate(); err != nil || !c.OperatorEnabled() {
		t.Fatalf("got err=%v enabled=%v", err, c.OperatorEnabled())
	}
}

func TestSimulationValidate(t *testing.T) {
	good := SimulationConfig{TotalTickets: 10, TicketReleaseRate: 2, CustomerRetrievalRate: 1, MaxCapacity: 5, Screens: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	bad := good
	bad.Screens = 0
	err := bad.Validate()
	if !errors.Is(err, ErrInvalidSimulation) || !strings.Contains(err.Error(), "screens") {
		t.Fatalf("got %v", err)
	}
	if p := good.Params(); p.TotalTickets != 10 || p.ReleaseRate != 2 || p.RetrievalRate != 1 || p.MaxCapacity != 5 || p.Screens != 1 {
		t.Fatalf("Params mismatch: %+v", p)
	}
}

func TestLoadSimulationFileAcceptsExistingFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	legacy := `{"totalTickets":6,"ticketReleaseRate":3,"customerRetrievalRate":3,"maxCapacity":10,"screens":2}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSimulationFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Screens != 2 || s.MaxCapacity != 10 || s.TotalTickets != 6 {
		t.Fatalf("decoded %+v", s)
	}

	if _, err := LoadSimulationFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: got %v", err)
	}
}

func TestPromptSimulationRetriesBadInput(t *testing.T) {
	in := strings.NewReader("ten\n10\n-2\n2\n1\n5\n0\n1\n")
	var out bytes.Buffer
	s, err := PromptSimulation(in, &out)
	if err != nil {
		t.Fatal(err)
	}
	want := SimulationConfig{TotalTickets: 10, TicketReleaseRate: 2, CustomerRetrievalRate: 1, MaxCapacity: 5, Screens: 1}
	if s != want {
		t.Fatalf("got %+v, want %+v", s, want)
	}
	if n := strings.Count(out.String(), "Please enter a positive whole number."); n != 3 {
		t.Fatalf("expected 3 retries, got %d:\n%s", n, out.String())
	}
}

func TestPromptSimulationEOF(t *testing.T) {
	if _, err := PromptSimulation(strings.NewReader("5\n"), &bytes.Buffer{}); err == nil {
		t.Fatal("expected error on truncated input")
	}
}

func TestAcquireSimulationPromptsAndSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Config{ConfigFile: path, Interactive: true}
	var out bytes.Buffer
	s, err := AcquireSimulation(cfg, strings.NewReader("no\n7\n3\n3\n10\n2\n"), &out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Configuration saved to "+path) {
		t.Fatalf("missing save message:\n%s", out.String())
	}
	loaded, err := AcquireSimulation(cfg, strings.NewReader("YES\n"), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if loaded != s {
		t.Fatalf("loaded %+v, saved %+v", loaded, s)
	}
}

func TestAcquireSimulationNonInteractiveFallsBackToEnv(t *testing.T) {
	cfg := Config{ConfigFile: filepath.Join(t.TempDir(), "absent.json")}
	t.Setenv("SIM_TOTAL_TICKETS", "8")
	t.Setenv("SIM_RELEASE_RATE", "2")
	t.Setenv("SIM_RETRIEVAL_RATE", "2")
	t.Setenv("SIM_MAX_CAPACITY", "4")
	t.Setenv("SIM_SCREENS", "2")
	s, err := AcquireSimulation(cfg, strings.NewReader(""), &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if s.TotalTickets != 8 || s.Screens != 2 {
		t.Fatalf("got %+v", s)
	}
}

func TestDisplay(t *testing.T) {
	var out bytes.Buffer
	SimulationConfig{TotalTickets: 1, TicketReleaseRate: 2, CustomerRetrievalRate: 3, MaxCapacity: 4, Screens: 5}.Display(&out)
	for _, line := range []string{"Total Tickets: 1", "Ticket Release Rate: 2", "Customer Retrieval Rate: 3", "Maximum Ticket Capacity: 4", "Number of Screens: 5"} {
		if !strings.Contains(out.String(), line) {
			t.Fatalf("missing %q in:\n%s", line, out.String())
		}
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	rl := LoadRateLimitConfig()
	if rl.Capacity != 1 {
		t.Fatalf("capacity %d, want 1", rl.Capacity)
	}
	if rl.TTL != 10*time.Second {
		t.Fatalf("ttl %s, want 5 refill intervals", rl.TTL)
	}
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head,")
	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || len(c.Methods) != 2 {
		t.Fatalf("methods %v", c.Methods)
	}
}
