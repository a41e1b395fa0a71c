package storage

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

const (
	tableNotifications = "notifications"
	tableLogs          = "execution_logs"

	colID               = "id"
	colCaseID           = "case_id"
	colType             = "notification_type"
	colAdverseParty     = "adverse_party"
	colDate             = "notification_date"
	colActivities       = "activities_json"
	colDocuments        = "documents_json"
	colStatus           = "status"
	colArchivedFrom     = "archived_from"
	colCreatedAt        = "created_at"
	colRunID            = "run_id"
	colStartedAt        = "started_at"
	colDurationMS       = "duration_ms"
	colAvgCaseMS        = "avg_case_ms"
	colNotifications    = "notifications_saved"
	colActivitiesCount  = "activities_captured"
	colDocumentsCount   = "documents_downloaded"
	colCasesSucceeded   = "cases_succeeded"
	colCasesFailed      = "cases_failed"
	colCritical         = "critical"
	colCriticalReason   = "critical_reason"
	notificationColumns = "id, case_id, notification_type, adverse_party, notification_date, activities_json, documents_json, status, archived_from, created_at"
	logColumns          = "id, run_id, started_at, duration_ms, avg_case_ms, notifications_saved, activities_captured, documents_downloaded, cases_succeeded, cases_failed, critical, critical_reason"
)

// sortable lists the columns a listing may be ordered by.
var sortable = map[string]string{
	"id":                colID,
	"case_id":           colCaseID,
	"created_at":        colCreatedAt,
	"notification_date": colDate,
	"notification_type": colType,
	"status":            colStatus,
}

// Dialect captures the SQL differences between the supported engines.
type Dialect struct {
	Name        string
	Driver      string
	Placeholder sq.PlaceholderFormat
	schema      []string
	concat      string
}

// DistinctConcat aggregates the distinct values of col into a comma-joined string.
func (d Dialect) DistinctConcat(col string) string {
	return fmt.Sprintf(d.concat, col)
}

// Schema returns the idempotent DDL statements.
func (d Dialect) Schema() []string {
	return d.schema
}

// SQLite is the default embedded engine (modernc.org/sqlite).
var SQLite = Dialect{
	Name:        "sqlite",
	Driver:      "sqlite",
	Placeholder: sq.Question,
	concat:      "GROUP_CONCAT(DISTINCT %s)",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			notification_type TEXT NOT NULL,
			adverse_party TEXT,
			notification_date TEXT NOT NULL,
			activities_json TEXT,
			documents_json TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			archived_from TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_case ON notifications(case_id)`,
		`CREATE TABLE IF NOT EXISTS execution_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			duration_ms INTEGER NOT NULL,
			avg_case_ms INTEGER NOT NULL,
			notifications_saved INTEGER NOT NULL,
			activities_captured INTEGER NOT NULL,
			documents_downloaded INTEGER NOT NULL,
			cases_succeeded INTEGER NOT NULL,
			cases_failed INTEGER NOT NULL,
			critical BOOLEAN NOT NULL DEFAULT 0,
			critical_reason TEXT
		)`,
	},
}

// Postgres is the server engine (github.com/lib/pq).
var Postgres = Dialect{
	Name:        "postgres",
	Driver:      "postgres",
	Placeholder: sq.Dollar,
	concat:      "STRING_AGG(DISTINCT %s, ',')",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			case_id TEXT NOT NULL,
			notification_type TEXT NOT NULL,
			adverse_party TEXT,
			notification_date TEXT NOT NULL,
			activities_json TEXT,
			documents_json TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			archived_from TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_status ON notifications(status)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_case ON notifications(case_id)`,
		`CREATE TABLE IF NOT EXISTS execution_logs (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL,
			avg_case_ms BIGINT NOT NULL,
			notifications_saved INTEGER NOT NULL,
			activities_captured INTEGER NOT NULL,
			documents_downloaded INTEGER NOT NULL,
			cases_succeeded INTEGER NOT NULL,
			cases_failed INTEGER NOT NULL,
			critical BOOLEAN NOT NULL DEFAULT FALSE,
			critical_reason TEXT
		)`,
	},
}

// DialectFor resolves a driver name, inferring it from the DSN when empty.
func DialectFor(driver, dsn string) (Dialect, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		lower := strings.ToLower(strings.TrimSpace(dsn))
		if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
			driver = "postgres"
		} else {
			driver = "sqlite"
		}
	}

	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}
