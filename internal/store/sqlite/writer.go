package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uyplayer/tech-analysis/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const defaultBatchSize = 500

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath    string // path to SQLite database file, e.g. "data/candles.db"
	BatchSize int    // rows per transaction, defaults to 500
}

// Writer is a single-connection SQLite writer with transaction batching.
type Writer struct {
	db        *sql.DB
	batchSize int
}

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	slog.Debug("sqlite writer opened", "path", cfg.DBPath)
	return &Writer{db: db, batchSize: batch}, nil
}

func dsn(path string) string {
	return path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol     TEXT    NOT NULL,
			tf         INTEGER NOT NULL,
			ts         INTEGER NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			volume     REAL,
			PRIMARY KEY (symbol, tf, ts)
		);

		CREATE TABLE IF NOT EXISTS indicator_values (
			symbol     TEXT    NOT NULL,
			tf         INTEGER NOT NULL,
			name       TEXT    NOT NULL,
			ts         INTEGER NOT NULL,
			value      REAL    NOT NULL,
			PRIMARY KEY (symbol, tf, name, ts)
		);
	`)
	return err
}

// InsertCandles upserts candles in batched transactions.
func (w *Writer) InsertCandles(candles []model.Candle) error {
	start := time.Now()
	for lo := 0; lo < len(candles); lo += w.batchSize {
		hi := min(lo+w.batchSize, len(candles))
		if err := w.insertBatch(candles[lo:hi]); err != nil {
			return fmt.Errorf("sqlite insert candles: %w", err)
		}
	}
	slog.Debug("sqlite committed candles", "count", len(candles), "took", time.Since(start))
	return nil
}

// insertBatch inserts a batch of candles in a single transaction.
func (w *Writer) insertBatch(candles []model.Candle) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, tf, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.Exec(c.Symbol, c.TF, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// SaveResults stores each indicator series bar-aligned with candles: value i goes to
// the candle at r.BarIndex(i), so a series with dropped bars keeps its timestamps.
func (w *Writer) SaveResults(candles []model.Candle, results []model.IndicatorResult) error {
	if len(candles) == 0 {
		return nil
	}
	symbol, tf := candles[0].Symbol, candles[0].TF

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO indicator_values (symbol, tf, name, ts, value)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare indicator_values: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		n := r.Series.Len()
		if n > len(candles) || (r.Bars != nil && len(r.Bars) != n) {
			tx.Rollback()
			return fmt.Errorf("%s: %d values for %d candles", r.Name, n, len(candles))
		}
		for i := 0; i < n; i++ {
			bar := r.BarIndex(i, len(candles))
			if bar < 0 || bar >= len(candles) {
				tx.Rollback()
				return fmt.Errorf("%s: value %d maps to bar %d of %d", r.Name, i, bar, len(candles))
			}
			if _, err := stmt.Exec(symbol, tf, r.Name, candles[bar].TS.Unix(), r.Series.At(i)); err != nil {
				tx.Rollback()
				return fmt.Errorf("sqlite insert %s: %w", r.Name, err)
			}
		}
	}
	return tx.Commit()
}

// GetLastTimestamp returns the last stored candle timestamp for a symbol and
// timeframe. Returns 0 if no candles exist.
func (w *Writer) GetLastTimestamp(symbol string, tf int) (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRow(
		`SELECT MAX(ts) FROM candles WHERE symbol = ? AND tf = ?`,
		symbol, tf,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
