package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds the connection used by repository tests.
type TestDatabaseSetup struct {
	DB *database.DB
}

const testSchema = `
CREATE TABLE IF NOT EXISTS employees (
	id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id TEXT NOT NULL,
	department_id TEXT,
	employee_code TEXT NOT NULL,
	full_name TEXT NOT NULL,
	email TEXT,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	employment_status TEXT NOT NULL DEFAULT 'ACTIVE',
	base_salary NUMERIC(15,2),
	hire_date DATE NOT NULL DEFAULT CURRENT_DATE,
	resignation_date DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	deleted_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS payroll_approvals (
	id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id TEXT NOT NULL,
	status TEXT NOT NULL,
	preview_metadata JSONB NOT NULL,
	preview_lines JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS payrolls (
	id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id TEXT NOT NULL,
	period_month INT NOT NULL,
	period_year INT NOT NULL,
	frequency TEXT NOT NULL,
	employee_ids TEXT[],
	employee_id TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS payroll_batches (
	payroll_id TEXT PRIMARY KEY,
	approval_id TEXT NOT NULL,
	company_id TEXT NOT NULL,
	run_id TEXT NOT NULL,
	period_month INT NOT NULL,
	period_year INT NOT NULL,
	frequency TEXT NOT NULL,
	employee_ids TEXT[] NOT NULL DEFAULT '{}',
	successful INT NOT NULL,
	duplicates INT NOT NULL,
	failed INT NOT NULL,
	total_employees INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS payroll_payslip_deliveries (
	id BIGSERIAL PRIMARY KEY,
	payroll_id TEXT NOT NULL,
	company_id TEXT NOT NULL,
	employee_id TEXT NOT NULL,
	status TEXT NOT NULL,
	payslip_url TEXT,
	message TEXT,
	attempted_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS employee_allowances (
	id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company_id TEXT NOT NULL,
	employee_id TEXT NOT NULL,
	name TEXT NOT NULL,
	amount NUMERIC(15,2) NOT NULL,
	is_taxable BOOLEAN NOT NULL DEFAULT FALSE,
	frequency TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// NewTestDatabase connects to TEST_DATABASE_URL and prepares the tables.
// The test is skipped when the variable is not set.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, 5)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(db.Close)

	_, err = db.Exec(ctx, testSchema)
	require.NoError(t, err)

	setup := &TestDatabaseSetup{DB: db}
	require.NoError(t, setup.TruncateAllTables(ctx))
	return setup
}

// TruncateAllTables removes all rows from the payroll tables.
func (s *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"employees",
		"payroll_approvals",
		"payrolls",
		"payroll_batches",
		"payroll_payslip_deliveries",
		"employee_allowances",
	}

	for _, table := range tables {
		_, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}
