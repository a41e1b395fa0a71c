package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/ports"
)

// Store persists notifications and execution logs. Every operation checks a
// connection out of the pool, runs, commits or rolls back and hands it back;
// nothing is held across calls.
type Store struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
	now     func() time.Time
}

var (
	_ ports.CaseRepository      = (*Store)(nil)
	_ ports.NotificationBrowser = (*Store)(nil)
)

// ErrNotArchivable is returned when archiving a row that is not processed.
var ErrNotArchivable = errors.New("notification is not in an archivable status")

// ErrNotArchived is returned when unarchiving a row that is not archived.
var ErrNotArchived = errors.New("notification is not archived")

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New wraps an open database handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range s.dialect.Schema() {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) withConn(ctx context.Context, fn func(q queryer) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func exec(ctx context.Context, q queryer, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.ExecContext(ctx, query, args...)
}

// insertChunk bounds the rows per INSERT so the bound variables stay under SQLite's limit.
const insertChunk = 500

// SaveNotifications inserts new Pending rows in one transaction, insertChunk rows per statement.
func (s *Store) SaveNotifications(ctx context.Context, notifications []domain.Notification) (int, error) {
	if len(notifications) == 0 {
		return 0, nil
	}

	now := s.now()
	var inserted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(notifications); start += insertChunk {
			end := min(start+insertChunk, len(notifications))

			insert := s.builder.Insert(tableNotifications).
				Columns(colCaseID, colType, colAdverseParty, colDate, colStatus, colCreatedAt)
			for _, n := range notifications[start:end] {
				insert = insert.Values(
					string(n.CaseID),
					n.Type,
					nullString(n.AdverseParty),
					n.Date.String(),
					string(domain.StatusPending),
					now,
				)
			}

			res, err := exec(ctx, tx, insert)
			if err != nil {
				return fmt.Errorf("insert notifications: %w", err)
			}
			affected, _ := res.RowsAffected()
			inserted += affected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// PendingCases groups every Pending row by case, oldest case first.
func (s *Store) PendingCases(ctx context.Context) ([]domain.CaseBatch, error) {
	query := s.builder.
		Select(colCaseID, s.dialect.DistinctConcat(colDate)).
		From(tableNotifications).
		Where(sq.Eq{colStatus: string(domain.StatusPending)}).
		GroupBy(colCaseID).
		OrderBy("MIN("+colCreatedAt+")", colCaseID)

	return s.queryBatches(ctx, query)
}

// RecentProcessedCases returns up to limit cases with processed rows and no Pending row,
// most recently created first.
func (s *Store) RecentProcessedCases(ctx context.Context, limit int) ([]domain.CaseBatch, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := s.builder.
		Select(colCaseID, s.dialect.DistinctConcat(colDate)).
		From(tableNotifications).
		Where(sq.Eq{colStatus: []string{string(domain.StatusProcessed), string(domain.StatusProcessedInTest)}}).
		Where(sq.Expr(colCaseID+" NOT IN (SELECT "+colCaseID+" FROM "+tableNotifications+" WHERE "+colStatus+" = ?)", string(domain.StatusPending))).
		GroupBy(colCaseID).
		OrderBy("MAX("+colCreatedAt+") DESC", "MAX("+colID+") DESC").
		Limit(uint64(limit))

	return s.queryBatches(ctx, query)
}

func (s *Store) queryBatches(ctx context.Context, b sq.SelectBuilder) ([]domain.CaseBatch, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []domain.CaseBatch
	err = s.withConn(ctx, func(q queryer) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query cases: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				caseID string
				dates  sql.NullString
			)
			if err := rows.Scan(&caseID, &dates); err != nil {
				return fmt.Errorf("scan case: %w", err)
			}
			batches = append(batches, domain.CaseBatch{CaseID: domain.CaseID(caseID), Dates: dates.String})
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows iteration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// UpdateCase overwrites the captured payload of a case and advances its status.
// Normal mode moves every Pending row to Processed. Test mode rewrites only the most
// recently created Processed/ProcessedInTest row as ProcessedInTest.
func (s *Store) UpdateCase(ctx context.Context, caseID domain.CaseID, activities []domain.Activity, documents []domain.Document, isTest bool) (int64, error) {
	activitiesJSON, err := encodePayload(activities)
	if err != nil {
		return 0, err
	}
	documentsJSON, err := encodePayload(documents)
	if err != nil {
		return 0, err
	}

	update := s.builder.Update(tableNotifications).
		Set(colActivities, activitiesJSON).
		Set(colDocuments, documentsJSON).
		Where(sq.Eq{colCaseID: string(caseID)})

	if isTest {
		latest, latestArgs, err := sq.Select(colID).
			From(tableNotifications).
			Where(sq.Eq{colCaseID: string(caseID)}).
			Where(sq.Eq{colStatus: []string{string(domain.StatusProcessed), string(domain.StatusProcessedInTest)}}).
			OrderBy(colCreatedAt+" DESC", colID+" DESC").
			Limit(1).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build query: %w", err)
		}
		update = update.
			Set(colStatus, string(domain.StatusProcessedInTest)).
			Where(sq.Expr(colID+" IN ("+latest+")", latestArgs...))
	} else {
		update = update.
			Set(colStatus, string(domain.StatusProcessed)).
			Where(sq.Eq{colStatus: string(domain.StatusPending)})
	}

	var affected int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := exec(ctx, tx, update)
		if err != nil {
			return fmt.Errorf("update case %s: %w", caseID, err)
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// MarkError moves the Pending rows of a case to Error.
func (s *Store) MarkError(ctx context.Context, caseID domain.CaseID) (int64, error) {
	update := s.builder.Update(tableNotifications).
		Set(colStatus, string(domain.StatusError)).
		Where(sq.Eq{colCaseID: string(caseID), colStatus: string(domain.StatusPending)})

	var affected int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := exec(ctx, tx, update)
		if err != nil {
			return fmt.Errorf("mark case %s as error: %w", caseID, err)
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// AppendLog inserts one execution-log row.
func (s *Store) AppendLog(ctx context.Context, log domain.ExecutionLog) error {
	insert := s.builder.Insert(tableLogs).
		Columns(colRunID, colStartedAt, colDurationMS, colAvgCaseMS, colNotifications,
			colActivitiesCount, colDocumentsCount, colCasesSucceeded, colCasesFailed,
			colCritical, colCriticalReason).
		Values(log.RunID, log.StartedAt.UTC(), log.Duration.Milliseconds(), log.AverageCaseDuration.Milliseconds(),
			log.NotificationsSaved, log.ActivitiesCaptured, log.DocumentsDownloaded,
			log.CasesSucceeded, log.CasesFailed, log.Critical, nullString(log.CriticalReason))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := exec(ctx, tx, insert); err != nil {
			return fmt.Errorf("insert execution log: %w", err)
		}
		return nil
	})
}

// ListLogs returns the latest execution logs, newest first.
func (s *Store) ListLogs(ctx context.Context, limit int) ([]domain.ExecutionLog, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args, err := s.builder.Select(logColumns).
		From(tableLogs).
		OrderBy(colID + " DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var logs []domain.ExecutionLog
	err = s.withConn(ctx, func(q queryer) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query logs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				l          domain.ExecutionLog
				durationMS int64
				avgMS      int64
				reason     sql.NullString
			)
			if err := rows.Scan(&l.ID, &l.RunID, &l.StartedAt, &durationMS, &avgMS, &l.NotificationsSaved,
				&l.ActivitiesCaptured, &l.DocumentsDownloaded, &l.CasesSucceeded, &l.CasesFailed,
				&l.Critical, &reason); err != nil {
				return fmt.Errorf("scan log: %w", err)
			}
			l.Duration = time.Duration(durationMS) * time.Millisecond
			l.AverageCaseDuration = time.Duration(avgMS) * time.Millisecond
			l.CriticalReason = reason.String
			logs = append(logs, l)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) filtered(b sq.SelectBuilder, filter ports.NotificationFilter) sq.SelectBuilder {
	if filter.Status != "" {
		b = b.Where(sq.Eq{colStatus: string(filter.Status)})
	}
	if filter.Type != "" {
		b = b.Where(sq.Eq{colType: filter.Type})
	}
	if filter.CaseID != "" {
		b = b.Where(sq.Eq{colCaseID: string(filter.CaseID)})
	}
	return b
}

// ListNotifications pages through notifications. OrderBy must be a known column;
// anything else falls back to created_at.
func (s *Store) ListNotifications(ctx context.Context, filter ports.NotificationFilter) ([]domain.Notification, error) {
	page, perPage := filter.Page, filter.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	order, ok := sortable[filter.OrderBy]
	if !ok {
		order = colCreatedAt
	}
	direction := " DESC"
	if filter.Ascending {
		direction = " ASC"
	}

	b := s.filtered(s.builder.Select(notificationColumns).From(tableNotifications), filter).
		OrderBy(order+direction, colID+direction).
		Limit(uint64(perPage)).
		Offset(uint64((page - 1) * perPage))

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []domain.Notification
	err = s.withConn(ctx, func(q queryer) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query notifications: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			n, err := scanNotification(rows)
			if err != nil {
				return err
			}
			out = append(out, n)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountNotifications counts the rows matching filter, ignoring paging.
func (s *Store) CountNotifications(ctx context.Context, filter ports.NotificationFilter) (int, error) {
	query, args, err := s.filtered(s.builder.Select("COUNT("+colID+")").From(tableNotifications), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int
	err = s.withConn(ctx, func(q queryer) error {
		if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
			return fmt.Errorf("count notifications: %w", err)
		}
		return nil
	})
	return count, err
}

// NotificationTypes lists the distinct notification types in alphabetical order.
func (s *Store) NotificationTypes(ctx context.Context) ([]string, error) {
	query, args, err := s.builder.Select("DISTINCT " + colType).
		From(tableNotifications).
		OrderBy(colType).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var types []string
	err = s.withConn(ctx, func(q queryer) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query types: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				return fmt.Errorf("scan type: %w", err)
			}
			types = append(types, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return types, nil
}

// GetNotification loads one row by id.
func (s *Store) GetNotification(ctx context.Context, id int64) (domain.Notification, error) {
	var n domain.Notification
	err := s.withConn(ctx, func(q queryer) error {
		var err error
		n, err = s.getNotification(ctx, q, id)
		return err
	})
	return n, err
}

func (s *Store) getNotification(ctx context.Context, q queryer, id int64) (domain.Notification, error) {
	query, args, err := s.builder.Select(notificationColumns).
		From(tableNotifications).
		Where(sq.Eq{colID: id}).
		ToSql()
	if err != nil {
		return domain.Notification{}, fmt.Errorf("build query: %w", err)
	}

	n, err := scanNotification(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Notification{}, fmt.Errorf("notification %d: %w", id, domain.ErrNotFound)
	}
	return n, err
}

// Archive moves a processed row to Archived, remembering its previous status.
func (s *Store) Archive(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getNotification(ctx, tx, id)
		if err != nil {
			return err
		}
		if !current.Status.Archivable() {
			return fmt.Errorf("archive notification %d (%s): %w", id, current.Status, ErrNotArchivable)
		}

		update := s.builder.Update(tableNotifications).
			Set(colArchivedFrom, string(current.Status)).
			Set(colStatus, string(domain.StatusArchived)).
			Where(sq.Eq{colID: id, colStatus: string(current.Status)})
		if _, err := exec(ctx, tx, update); err != nil {
			return fmt.Errorf("archive notification %d: %w", id, err)
		}
		return nil
	})
}

// Unarchive restores the status held before archiving, Processed when unknown.
func (s *Store) Unarchive(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getNotification(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusArchived {
			return fmt.Errorf("unarchive notification %d (%s): %w", id, current.Status, ErrNotArchived)
		}

		restored := current.ArchivedFrom
		if !restored.Archivable() {
			restored = domain.StatusProcessed
		}

		update := s.builder.Update(tableNotifications).
			Set(colStatus, string(restored)).
			Set(colArchivedFrom, nil).
			Where(sq.Eq{colID: id, colStatus: string(domain.StatusArchived)})
		if _, err := exec(ctx, tx, update); err != nil {
			return fmt.Errorf("unarchive notification %d: %w", id, err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (domain.Notification, error) {
	var (
		n            domain.Notification
		caseID       string
		adverse      sql.NullString
		date         string
		activities   sql.NullString
		documents    sql.NullString
		status       string
		archivedFrom sql.NullString
	)
	if err := row.Scan(&n.ID, &caseID, &n.Type, &adverse, &date, &activities, &documents, &status, &archivedFrom, &n.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return n, err
		}
		return n, fmt.Errorf("scan notification: %w", err)
	}

	n.CaseID = domain.CaseID(caseID)
	n.AdverseParty = adverse.String
	n.Status = domain.Status(status)
	n.ArchivedFrom = domain.Status(archivedFrom.String)

	if date != "" {
		day, err := domain.ParseDay(date)
		if err != nil {
			return n, fmt.Errorf("notification %d: %w", n.ID, err)
		}
		n.Date = day
	}

	var err error
	if n.Activities, err = decodePayload[domain.Activity](activities); err != nil {
		return n, fmt.Errorf("notification %d activities: %w", n.ID, err)
	}
	if n.Documents, err = decodePayload[domain.Document](documents); err != nil {
		return n, fmt.Errorf("notification %d documents: %w", n.ID, err)
	}
	return n, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
