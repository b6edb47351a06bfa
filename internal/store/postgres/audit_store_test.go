package postgres

import (
	"testing"
	"time"

	"github.com/Domadoni/Epl-arb-finder/internal/domain"
)

func TestAuditQuery(t *testing.T) {
	q, args := auditQuery(domain.ListOpts{})
	if q != `SELECT id, event, detail, created_at FROM audit_log ORDER BY created_at DESC, id DESC` || len(args) != 0 {
		t.Errorf("bare query = %q %v", q, args)
	}

	since := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	q, args = auditQuery(domain.ListOpts{Since: &since, Limit: 20, Offset: 40})
	want := `SELECT id, event, detail, created_at FROM audit_log WHERE created_at >= $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	if q != want {
		t.Errorf("query = %q", q)
	}
	if len(args) != 3 || args[1] != 20 || args[2] != 40 {
		t.Errorf("args = %v", args)
	}
}

func TestDSN(t *testing.T) {
	if got := DSN(ClientConfig{DSN: " postgres://x "}); got != "postgres://x" {
		t.Errorf("explicit = %q", got)
	}
	got := DSN(ClientConfig{Host: "db", User: "arb", Password: "pw", Database: "arbs"})
	if got != "postgres://arb:pw@db:5432/arbs?sslmode=disable" {
		t.Errorf("built = %q", got)
	}
}

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) == 0 || names[0] != "001_init.sql" {
		t.Errorf("names = %v", names)
	}
}
