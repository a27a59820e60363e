package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uyplayer/tech-analysis/internal/model"
	"github.com/uyplayer/tech-analysis/internal/series"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to stored candles and indicator values.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	slog.Debug("sqlite reader opened", "path", dbPath)
	return &Reader{db: db}, nil
}

// ReadCandles reads candles for a symbol and timeframe with ts > afterTS, ordered by
// timestamp ascending.
func (r *Reader) ReadCandles(symbol string, tf int, afterTS int64) ([]model.Candle, error) {
	rows, err := r.db.Query(`
		SELECT symbol, tf, ts, open, high, low, close, COALESCE(volume, 0)
		FROM candles
		WHERE symbol = ? AND tf = ? AND ts > ?
		ORDER BY ts ASC
	`, symbol, tf, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var tsUnix int64
		if err := rows.Scan(&c.Symbol, &c.TF, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candles: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// ReadIndicator reads a stored indicator series by name, ordered by timestamp.
func (r *Reader) ReadIndicator(symbol string, tf int, name string) (series.Series, error) {
	rows, err := r.db.Query(`
		SELECT value FROM indicator_values
		WHERE symbol = ? AND tf = ? AND name = ?
		ORDER BY ts ASC
	`, symbol, tf, name)
	if err != nil {
		return series.Series{}, fmt.Errorf("sqlite query indicator_values: %w", err)
	}
	defer rows.Close()

	b := series.NewBuilder(name, 0)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return series.Series{}, fmt.Errorf("sqlite scan indicator_values: %w", err)
		}
		b.Append(v)
	}
	if err := rows.Err(); err != nil {
		return series.Series{}, err
	}
	return b.Series(), nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
