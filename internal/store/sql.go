package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
	"github.com/akiharsha/ai-assistant-chatbot/internal/utils"
)

const (
	// DriverSQLite selects the pure-Go SQLite driver.
	DriverSQLite = "sqlite"
	// DriverPostgres selects the PostgreSQL driver.
	DriverPostgres = "postgres"
)

const recordColumns = `seq, feedback_id, user_id, created_at, rating, language_used, interaction_type, comments,
	response_quality, cultural_sensitivity, language_accuracy, helpfulness, response_speed, user_satisfaction,
	would_recommend, improvement_suggestions, technical_issues`

const schema = `
CREATE TABLE IF NOT EXISTS feedback_records (
	seq BIGINT NOT NULL,
	feedback_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	rating INTEGER NOT NULL,
	language_used TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	comments TEXT NOT NULL,
	response_quality INTEGER NOT NULL,
	cultural_sensitivity INTEGER NOT NULL,
	language_accuracy INTEGER NOT NULL,
	helpfulness INTEGER NOT NULL,
	response_speed INTEGER NOT NULL,
	user_satisfaction INTEGER NOT NULL,
	would_recommend BOOLEAN NOT NULL,
	improvement_suggestions TEXT NOT NULL,
	technical_issues TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feedback_records_seq ON feedback_records(seq);
CREATE INDEX IF NOT EXISTS idx_feedback_records_user ON feedback_records(user_id)
`

// SQLBackend stores one row per record, ordered by an explicit seq column.
type SQLBackend struct {
	db     *sql.DB
	driver string
}

// OpenSQLBackend connects to dsn with the given driver and ensures the schema.
func OpenSQLBackend(ctx context.Context, driver, dsn string) (*SQLBackend, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("sql dsn is required")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, models.NewStorageError("open", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, models.NewStorageError("ping", driver, err)
	}

	b := &SQLBackend{db: db, driver: driver}
	if driver == DriverSQLite {
		// A single connection keeps in-memory databases alive and serializes writers.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, models.NewStorageError("pragma", driver, err)
			}
		}
	}
	if err := b.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLBackend) initSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return models.NewStorageError("schema", b.driver, err)
		}
	}
	return nil
}

// Name implements Backend.
func (b *SQLBackend) Name() string { return "sql/" + b.driver }

// Load returns all rows in seq order.
func (b *SQLBackend) Load(ctx context.Context) ([]models.Record, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM feedback_records ORDER BY seq, created_at")
	if err != nil {
		return nil, models.NewStorageError("query", b.driver, err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var (
			seq       int64
			createdAt string
			rec       models.Record
		)
		if err := rows.Scan(
			&seq, &rec.FeedbackID, &rec.UserID, &createdAt, &rec.Rating, &rec.Language, &rec.InteractionType, &rec.Comments,
			&rec.ResponseQuality, &rec.CulturalSensitivity, &rec.LanguageAccuracy, &rec.Helpfulness, &rec.ResponseSpeed, &rec.UserSatisfaction,
			&rec.WouldRecommend, &rec.ImprovementSuggestions, &rec.TechnicalIssues,
		); err != nil {
			return nil, models.NewStorageError("scan", b.driver, err)
		}
		ts, err := utils.ParseTimestamp(createdAt)
		if err != nil {
			return nil, models.NewStorageError("scan", b.driver, fmt.Errorf("feedback %s: %w", rec.FeedbackID, err))
		}
		rec.Timestamp = ts
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewStorageError("query", b.driver, err)
	}
	return records, nil
}

// Append inserts rec at the end of the sequence.
func (b *SQLBackend) Append(ctx context.Context, rec models.Record, records []models.Record) error {
	seq := int64(len(records) - 1)
	if seq < 0 {
		seq = 0
	}
	if _, err := b.db.ExecContext(ctx, b.insertStatement(), recordArgs(seq, rec)...); err != nil {
		return models.NewStorageError("insert", b.driver, err)
	}
	return nil
}

// Persist replaces every row inside one transaction.
func (b *SQLBackend) Persist(ctx context.Context, records []models.Record) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewStorageError("begin", b.driver, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM feedback_records"); err != nil {
		tx.Rollback()
		return models.NewStorageError("truncate", b.driver, err)
	}
	stmt, err := tx.PrepareContext(ctx, b.insertStatement())
	if err != nil {
		tx.Rollback()
		return models.NewStorageError("prepare", b.driver, err)
	}
	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, recordArgs(int64(i), rec)...); err != nil {
			stmt.Close()
			tx.Rollback()
			return models.NewStorageError("insert", b.driver, err)
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return models.NewStorageError("commit", b.driver, err)
	}
	return nil
}

// Close closes the database handle.
func (b *SQLBackend) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func (b *SQLBackend) insertStatement() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", 17), ", ")
	return b.rebind("INSERT INTO feedback_records (" + recordColumns + ") VALUES (" + placeholders + ")")
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (b *SQLBackend) rebind(query string) string {
	if b.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func recordArgs(seq int64, rec models.Record) []any {
	return []any{
		seq, rec.FeedbackID, rec.UserID, rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.Rating,
		string(rec.Language), string(rec.InteractionType), rec.Comments,
		rec.ResponseQuality, rec.CulturalSensitivity, rec.LanguageAccuracy, rec.Helpfulness, rec.ResponseSpeed, rec.UserSatisfaction,
		rec.WouldRecommend, rec.ImprovementSuggestions, rec.TechnicalIssues,
	}
}
