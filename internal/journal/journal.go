// Package journal records produced signals and order outcomes in DuckDB
// and exports them to Parquet.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/kis-autotrader/internal/logger"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// MemoryPath keeps the journal in memory for the life of the process.
const MemoryPath = ":memory:"

// Journal is a DuckDB-backed signal and order log. It is safe for
// concurrent use.
type Journal struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// StrategySummary aggregates the journal for one strategy.
type StrategySummary struct {
	Strategy string `json:"strategy"`
	Signals  int    `json:"signals"`
	Executed int    `json:"executed"`
	Failed   int    `json:"failed"`
}

// Open opens or creates the journal at path. Use MemoryPath for an
// in-memory journal.
func Open(path string, log *logger.Logger) (*Journal, error) {
	if log == nil {
		log = logger.NewNop()
	}

	if path == "" {
		path = MemoryPath
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to create journal directory for %s", path)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		log.Error("Failed to open journal database", zap.String("path", path), zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to open journal database", err)
	}

	if err := db.Ping(); err != nil {
		log.Error("Failed to connect to journal database", zap.String("path", path), zap.Error(err))
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to connect to journal database", err)
	}

	j := &Journal{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := j.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return j, nil
}

// RecordSignal stores a produced signal. Recording the same signal ID twice
// is an error.
func (j *Journal) RecordSignal(ctx context.Context, signal types.Signal) error {
	_, err := j.sq.
		Insert("signals").
		Columns("id", "strategy", "symbol", "action", "quantity", "price", "order_kind", "reason", "time").
		Values(
			signal.ID, signal.StrategyName, signal.Symbol, string(signal.Action), signal.Quantity,
			signal.Price, string(signal.OrderKind), signal.Reason, signal.Time,
		).
		RunWith(j.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to record signal %s", signal.ID)
	}

	return nil
}

// RecordOutcome stores the result of submitting a signal as an order.
func (j *Journal) RecordOutcome(ctx context.Context, outcome types.OrderOutcome) error {
	var nextID int64
	if err := j.db.QueryRowContext(ctx, "SELECT nextval('order_id_seq')").Scan(&nextID); err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to get next order id", err)
	}

	signal := outcome.Signal

	_, err := j.sq.
		Insert("orders").
		Columns(
			"id", "signal_id", "strategy", "symbol", "side", "quantity", "price",
			"status", "order_no", "error", "time",
		).
		Values(
			nextID, signal.ID, outcome.Strategy, signal.Symbol, string(signal.Action), signal.Quantity, signal.Price,
			string(outcome.Status), outcome.OrderNo, outcome.Error, outcome.Time,
		).
		RunWith(j.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to record outcome for signal %s", signal.ID)
	}

	return nil
}

// Signals returns the recorded signals, oldest first.
func (j *Journal) Signals(ctx context.Context) ([]types.Signal, error) {
	rows, err := j.sq.
		Select("id", "strategy", "symbol", "action", "quantity", "price", "order_kind", "reason", "time").
		From("signals").
		OrderBy("time ASC", "id ASC").
		RunWith(j.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to query signals", err)
	}
	defer rows.Close()

	var signals []types.Signal

	for rows.Next() {
		var signal types.Signal

		var action, kind string

		err := rows.Scan(
			&signal.ID,
			&signal.StrategyName,
			&signal.Symbol,
			&action,
			&signal.Quantity,
			&signal.Price,
			&kind,
			&signal.Reason,
			&signal.Time,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to scan signal", err)
		}

		signal.Action = types.SignalAction(action)
		signal.OrderKind = types.OrderKind(kind)
		signals = append(signals, signal)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "error iterating signals", err)
	}

	return signals, nil
}

// Outcomes returns the recorded order outcomes, oldest first. since
// filters out earlier outcomes when non-zero.
func (j *Journal) Outcomes(ctx context.Context, since time.Time) ([]types.OrderOutcome, error) {
	query := j.sq.
		Select(
			"signal_id", "strategy", "symbol", "side", "quantity", "price",
			"status", "order_no", "error", "time",
		).
		From("orders").
		OrderBy("id ASC")

	if !since.IsZero() {
		query = query.Where(squirrel.GtOrEq{"time": since})
	}

	rows, err := query.RunWith(j.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to query outcomes", err)
	}
	defer rows.Close()

	var outcomes []types.OrderOutcome

	for rows.Next() {
		var outcome types.OrderOutcome

		var side, status string

		err := rows.Scan(
			&outcome.Signal.ID,
			&outcome.Strategy,
			&outcome.Signal.Symbol,
			&side,
			&outcome.Signal.Quantity,
			&outcome.Signal.Price,
			&status,
			&outcome.OrderNo,
			&outcome.Error,
			&outcome.Time,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to scan outcome", err)
		}

		outcome.Signal.Action = types.SignalAction(side)
		outcome.Signal.StrategyName = outcome.Strategy
		outcome.Status = types.OrderStatus(status)
		outcomes = append(outcomes, outcome)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "error iterating outcomes", err)
	}

	return outcomes, nil
}

// Summary aggregates signals and order outcomes per strategy.
func (j *Journal) Summary(ctx context.Context) ([]StrategySummary, error) {
	orders := j.sq.
		Select(
			"strategy",
			"COUNT(*) FILTER (WHERE status = 'EXECUTED') AS executed",
			"COUNT(*) FILTER (WHERE status = 'FAILED') AS failed",
		).
		From("orders").
		GroupBy("strategy")

	ordersSQL, ordersArgs, err := orders.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to build summary query", err)
	}

	rows, err := j.sq.
		Select("s.strategy", "COUNT(*) AS signals", "COALESCE(MAX(o.executed), 0)", "COALESCE(MAX(o.failed), 0)").
		From("signals s").
		LeftJoin(fmt.Sprintf("(%s) o ON o.strategy = s.strategy", ordersSQL), ordersArgs...).
		GroupBy("s.strategy").
		OrderBy("s.strategy ASC").
		RunWith(j.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to query summary", err)
	}
	defer rows.Close()

	var summaries []StrategySummary

	for rows.Next() {
		var summary StrategySummary
		if err := rows.Scan(&summary.Strategy, &summary.Signals, &summary.Executed, &summary.Failed); err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalFailed, "failed to scan summary", err)
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalFailed, "error iterating summary", err)
	}

	return summaries, nil
}

// Export writes signals.parquet and orders.parquet into dir.
func (j *Journal) Export(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to create export directory %s", dir)
	}

	for _, table := range []string{"signals", "orders"} {
		path := filepath.Join(dir, table+".parquet")

		_, err := j.db.ExecContext(ctx, fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, escapeLiteral(path)))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeJournalFailed, err, "failed to export %s to parquet", table)
		}
	}

	j.logger.Info("Exported journal to Parquet", zap.String("dir", dir))

	return nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}

	return j.db.Close()
}

func (j *Journal) initialize() error {
	_, err := j.db.Exec(`CREATE SEQUENCE IF NOT EXISTS order_id_seq`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to create sequence", err)
	}

	_, err = j.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			strategy TEXT,
			symbol TEXT,
			action TEXT,
			quantity INTEGER,
			price DOUBLE,
			order_kind TEXT,
			reason TEXT,
			time TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to create signals table", err)
	}

	_, err = j.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id BIGINT PRIMARY KEY,
			signal_id TEXT,
			strategy TEXT,
			symbol TEXT,
			side TEXT,
			quantity INTEGER,
			price DOUBLE,
			status TEXT,
			order_no TEXT,
			error TEXT,
			time TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalFailed, "failed to create orders table", err)
	}

	return nil
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
