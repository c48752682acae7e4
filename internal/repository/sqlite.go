package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/invoiceflow/invoice-validator/internal/common"
	"github.com/invoiceflow/invoice-validator/internal/entity"
)

// SQLiteStore is a file-backed DocumentStore for local one-shot runs and
// tests. Same table shape as Postgres, with data kept as a JSON text column.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS invoices (
	name TEXT PRIMARY KEY,
	doctype TEXT NOT NULL,
	data TEXT NOT NULL DEFAULT '{}',
	raw_text TEXT,
	workflow_state TEXT,
	ai_validation_status TEXT,
	ai_validation_summary TEXT,
	ai_validation_confidence REAL,
	ai_validation_result TEXT,
	ai_validation_date TEXT,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);`

// OpenSQLite opens (and initializes) the store at path. ":memory:" works for
// tests.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "init sqlite schema")
	}
	logger.Info("sqlite store ready", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Get(ctx context.Context, doctype, name string) (*entity.Document, error) {
	var (
		data          string
		rawText       sql.NullString
		workflowState sql.NullString
		updatedAt     string
		vStatus       sql.NullString
		vSummary      sql.NullString
		vConfidence   sql.NullFloat64
		vResult       sql.NullString
		vDate         sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, raw_text, workflow_state, updated_at,
		        ai_validation_status, ai_validation_summary, ai_validation_confidence,
		        ai_validation_result, ai_validation_date
		 FROM invoices WHERE doctype = ? AND name = ?`,
		doctype, name,
	).Scan(&data, &rawText, &workflowState, &updatedAt,
		&vStatus, &vSummary, &vConfidence, &vResult, &vDate)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s %s: %w", doctype, name, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "load document")
	}

	doc := &entity.Document{Doctype: doctype, Name: name}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		doc.UpdatedAt = t
	}
	if err := json.Unmarshal([]byte(data), &doc.Fields); err != nil {
		return nil, common.WrapError(err, "decode document data")
	}
	if doc.Fields == nil {
		doc.Fields = map[string]any{}
	}
	if rawText.Valid {
		doc.Fields["raw_text"] = rawText.String
	}
	if vStatus.Valid {
		doc.Fields["ai_validation_status"] = vStatus.String
	}
	if vSummary.Valid {
		doc.Fields["ai_validation_summary"] = vSummary.String
	}
	if vConfidence.Valid {
		doc.Fields["ai_validation_confidence"] = vConfidence.Float64
	}
	if vResult.Valid {
		doc.Fields["ai_validation_result"] = vResult.String
	}
	if vDate.Valid {
		doc.Fields["ai_validation_date"] = vDate.String
	}
	if workflowState.Valid {
		doc.WorkflowState = workflowState.String
	}
	return doc, nil
}

func (s *SQLiteStore) List(ctx context.Context, doctype string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM invoices WHERE doctype = ? ORDER BY created_at DESC`, doctype)
	if err != nil {
		return nil, common.WrapError(err, "list documents")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// SetSystemFields mirrors the Postgres system write: validation columns are
// updated directly, other fields are merged into data via read-modify-write
// in one transaction. workflow_state is ignored and updated_at untouched.
func (s *SQLiteStore) SetSystemFields(ctx context.Context, doctype, name string, fields map[string]any) error {
	columns, patch := splitSystemFields(fields)
	if len(columns) == 0 && len(patch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(err, "begin system write")
	}
	defer func() { _ = tx.Rollback() }()

	sets := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+3)
	for col, v := range columns {
		sets = append(sets, col+" = ?")
		args = append(args, sqliteValue(v))
	}

	if len(patch) > 0 {
		var data string
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM invoices WHERE doctype = ? AND name = ?`, doctype, name).Scan(&data)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%s %s: %w", doctype, name, common.ErrNotFound)
		}
		if err != nil {
			return common.WrapError(err, "load data for patch")
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return common.WrapError(err, "decode data for patch")
		}
		if m == nil {
			m = map[string]any{}
		}
		for k, v := range patch {
			m[k] = v
		}
		merged, err := json.Marshal(m)
		if err != nil {
			return common.WrapError(err, "encode patched data")
		}
		sets = append(sets, "data = ?")
		args = append(args, string(merged))
	}

	args = append(args, doctype, name)
	query := fmt.Sprintf(`UPDATE invoices SET %s WHERE doctype = ? AND name = ?`, strings.Join(sets, ", "))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("store.system_write_failed", "doctype", doctype, "name", name, "error", err)
		return common.WrapError(err, "system write")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s %s: %w", doctype, name, common.ErrNotFound)
	}
	return tx.Commit()
}

// Put inserts or replaces a document.
func (s *SQLiteStore) Put(ctx context.Context, doc *entity.Document) error {
	fields := make(map[string]any, len(doc.Fields))
	var rawText any
	for k, v := range doc.Fields {
		if k == "raw_text" {
			if sv, ok := v.(string); ok {
				rawText = sv
				continue
			}
		}
		fields[k] = v
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return common.WrapError(err, "encode document data")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices (name, doctype, data, raw_text, workflow_state)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE
		SET data = excluded.data, raw_text = excluded.raw_text,
		    workflow_state = excluded.workflow_state,
		    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		doc.Name, doc.Doctype, string(data), rawText, nullIfEmpty(doc.WorkflowState))
	return common.WrapError(err, "put document")
}

func sqliteValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	return v
}
