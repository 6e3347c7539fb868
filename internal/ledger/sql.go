package ledger

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Dialect selects placeholder style and schema for a SQL store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore persists records in a relational ledger table. It works against
// sqlite for single-node deployments and postgres for shared ones.
type SQLStore struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{DB: db, Dialect: dialect}
}

// Migrate applies the embedded schema for the store's dialect.
func (s *SQLStore) Migrate() error {
	name := SQLiteSchemaName
	if s.Dialect == DialectPostgres {
		name = PostgresSchemaName
	}
	schema, err := LoadSchema(name)
	if err != nil {
		return err
	}
	if _, err := s.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply %s schema: %w", s.Dialect, err)
	}
	return nil
}

const insertSQL = `INSERT INTO express_transactions
	(id, operation, version, is_sandbox, amount, currency, ack,
	 correlation_id, token, error_code, error_message,
	 raw_request, raw_response, response_time_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectSQL = `SELECT id, operation, version, is_sandbox, amount, currency, ack,
	 correlation_id, token, error_code, error_message,
	 raw_request, raw_response, response_time_ms, created_at
	FROM express_transactions`

func (s *SQLStore) Put(rec Record) (Record, error) {
	rec = prepare(rec)

	var amount sql.NullString
	if rec.Amount != nil {
		amount = sql.NullString{String: rec.Amount.String(), Valid: true}
	}

	_, err := s.DB.Exec(s.rebind(insertSQL),
		rec.ID,
		string(rec.Operation),
		rec.Version,
		rec.IsSandbox,
		amount,
		rec.Currency,
		string(rec.Ack),
		rec.CorrelationID,
		rec.Token,
		rec.ErrorCode,
		rec.ErrorMessage,
		rec.RawRequest,
		rec.RawResponse,
		rec.ResponseTimeMS,
		rec.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert transaction: %w", err)
	}
	return rec, nil
}

func (s *SQLStore) LatestByToken(token string, op Operation) (Record, bool, error) {
	query := selectSQL + ` WHERE token = ? AND operation = ? ORDER BY created_at DESC, seq DESC LIMIT 1`
	rows, err := s.DB.Query(s.rebind(query), token, string(op))
	if err != nil {
		return Record{}, false, err
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return Record{}, false, err
	}
	if len(recs) == 0 {
		return Record{}, false, nil
	}
	return recs[0], true, nil
}

func (s *SQLStore) ByToken(token string) ([]Record, error) {
	query := selectSQL + ` WHERE token = ? ORDER BY created_at DESC, seq DESC`
	rows, err := s.DB.Query(s.rebind(query), token)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (s *SQLStore) ByCorrelationID(correlationID string) ([]Record, error) {
	query := selectSQL + ` WHERE correlation_id = ? ORDER BY created_at DESC, seq DESC`
	rows, err := s.DB.Query(s.rebind(query), correlationID)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			operation string
			ack       string
			amount    sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&operation,
			&rec.Version,
			&rec.IsSandbox,
			&amount,
			&rec.Currency,
			&ack,
			&rec.CorrelationID,
			&rec.Token,
			&rec.ErrorCode,
			&rec.ErrorMessage,
			&rec.RawRequest,
			&rec.RawResponse,
			&rec.ResponseTimeMS,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Operation = Operation(operation)
		rec.Ack = Ack(ack)
		if amount.Valid {
			parsed, err := decimal.NewFromString(amount.String)
			if err != nil {
				return nil, fmt.Errorf("parse stored amount %q: %w", amount.String, err)
			}
			rec.Amount = &parsed
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
