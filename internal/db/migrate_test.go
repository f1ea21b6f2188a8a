package db

import (
	"strings"
	"testing"
)

func TestLoadMigrations_Ordered(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(migrations))
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			t.Errorf("migrations out of order: %s before %s", migrations[i-1].Name, migrations[i].Name)
		}
	}
}

func TestLoadMigrations_ChangeFeedTriggers(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	var all strings.Builder
	for _, m := range migrations {
		all.WriteString(m.UpSQL)
	}
	for _, want := range []string{
		"pg_notify('row_changes'",
		"lead_requests_row_changes",
		"payment_orders_row_changes",
		"free_leads_used BOOLEAN NOT NULL DEFAULT FALSE",
		"lead_request_id  UUID UNIQUE",
	} {
		if !strings.Contains(all.String(), want) {
			t.Errorf("schema missing %q", want)
		}
	}
}
