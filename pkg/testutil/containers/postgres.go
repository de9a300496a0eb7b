//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// schema mirrors the migrations the integrating platform applies.
const schema = `
CREATE TABLE IF NOT EXISTS identities (
	id                UUID PRIMARY KEY,
	patient_id        UUID NOT NULL,
	public_number     TEXT NOT NULL UNIQUE,
	encrypted_secret  TEXT NOT NULL,
	is_active         BOOLEAN NOT NULL,
	issued_at         TIMESTAMPTZ NOT NULL,
	deactivated_at    TIMESTAMPTZ,
	security_settings JSONB NOT NULL,
	code_settings     JSONB NOT NULL,
	lockout           JSONB NOT NULL,
	medical_data      JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_identities_patient ON identities (patient_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS access_ledger (
	id               UUID PRIMARY KEY,
	identity_id      UUID NOT NULL,
	staff_id         UUID NOT NULL,
	declared_role    TEXT NOT NULL,
	purpose          TEXT NOT NULL,
	attempted_at     TIMESTAMPTZ NOT NULL,
	access_type      TEXT NOT NULL,
	outcome          TEXT NOT NULL,
	failure_reason   TEXT NOT NULL DEFAULT '',
	disclosed_fields JSONB,
	device           JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_access_ledger_identity ON access_ledger (identity_id, attempted_at DESC, id DESC);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// credential schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("umid_test"),
		tcpostgres.WithUsername("umid"),
		tcpostgres.WithPassword("umid"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// Truncate clears all tables. Use between tests to ensure isolation.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `TRUNCATE identities, access_ledger`)
	return err
}
