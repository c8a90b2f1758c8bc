// Package sqlexec runs model-generated SQL against the target database and
// shapes the outcome into a QueryResultEnvelope.
package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/errors"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/logger"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/metrics"
	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

const (
	NoQueryMessage = "No SQL query provided"
	SuccessMessage = "Query executed successfully."
)

type Options struct {
	ReadOnlyGuard    bool
	StatementTimeout time.Duration
}

type Executor struct {
	db     *sql.DB
	opts   Options
	logger logger.Logger
}

func NewExecutor(db *sql.DB, opts Options, log logger.Logger) *Executor {
	return &Executor{db: db, opts: opts, logger: log}
}

// Execute runs one statement. Statement failures come back as an Error
// envelope; only a failure to obtain a connection is returned as an error
// (DATABASE_CONNECTION_FAILED).
func (e *Executor) Execute(ctx context.Context, sqlText string) (models.QueryResultEnvelope, error) {
	start := time.Now()
	env, err := e.execute(ctx, sqlText)

	outcome := string(env.Type)
	if err != nil {
		outcome = "connection_failed"
	}
	metrics.SQLExecutions.WithLabelValues(outcome).Inc()
	metrics.SQLExecutionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return env, err
}

func (e *Executor) execute(ctx context.Context, sqlText string) (models.QueryResultEnvelope, error) {
	if strings.TrimSpace(sqlText) == "" {
		return models.NewErrorEnvelope(NoQueryMessage), nil
	}

	if e.opts.ReadOnlyGuard {
		if err := CheckReadOnly(sqlText); err != nil {
			e.logger.Warn("statement rejected", map[string]interface{}{"reason": err.Error()})
			return models.NewErrorEnvelope(RejectedMessage), nil
		}
	}

	if e.opts.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.StatementTimeout)
		defer cancel()
	}

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return models.QueryResultEnvelope{}, apperrors.NewDatabaseConnectionFailedError(err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: e.opts.ReadOnlyGuard})
	if err != nil {
		return e.failed(ctx, err), nil
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rows, err := e.query(ctx, tx, sqlText)
	if err != nil {
		return e.failed(ctx, err), nil
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return e.failed(ctx, err), nil
	}

	if len(columns) == 0 {
		rows.Close()
		if err := tx.Commit(); err != nil {
			return e.failed(ctx, err), nil
		}
		committed = true
		return models.NewMessageEnvelope(SuccessMessage), nil
	}

	result, err := readRows(rows, columns)
	rows.Close()
	if err != nil {
		return e.failed(ctx, err), nil
	}
	if err := tx.Commit(); err != nil {
		return e.failed(ctx, err), nil
	}
	committed = true

	if isCountQuery(sqlText, columns) && len(result) > 0 {
		return models.NewCountEnvelope(result[0][columns[0]]), nil
	}
	return models.NewResultSetEnvelope(columns, result, sqlText), nil
}

// query runs sqlText inside tx. Guarded statements are prepared first so the
// server parses them with the extended protocol, which refuses more than one
// command. The prepared statement is closed with the transaction.
func (e *Executor) query(ctx context.Context, tx *sql.Tx, sqlText string) (*sql.Rows, error) {
	if !e.opts.ReadOnlyGuard {
		return tx.QueryContext(ctx, sqlText)
	}
	stmt, err := tx.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(ctx)
}

// isCountQuery collapses a single column named "count" into a Count
// envelope when the statement text mentions count. Any expression aliased
// as count matches, aggregate or not.
func isCountQuery(sqlText string, columns []string) bool {
	return strings.Contains(strings.ToLower(sqlText), "count") &&
		len(columns) == 1 &&
		strings.EqualFold(columns[0], "count")
}

func readRows(rows *sql.Rows, columns []string) ([]map[string]interface{}, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	dbTypes := make([]string, len(columns))
	for i, ct := range types {
		dbTypes[i] = ct.DatabaseTypeName()
	}

	result := []map[string]interface{}{}
	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i], dbTypes[i])
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (e *Executor) failed(ctx context.Context, err error) models.QueryResultEnvelope {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		e.logger.Warn("statement timed out", map[string]interface{}{"timeout": e.opts.StatementTimeout.String()})
		return models.NewErrorEnvelope(fmt.Sprintf("Query timed out after %s", e.opts.StatementTimeout))
	}
	e.logger.Warn("statement failed", map[string]interface{}{"error": err})
	return models.NewErrorEnvelope(err.Error())
}
