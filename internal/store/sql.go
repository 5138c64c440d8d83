package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/i474232898/env-timeseries/internal/metrics"
	"github.com/i474232898/env-timeseries/internal/series"
	"github.com/i474232898/env-timeseries/internal/weather"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMySQL    Backend = "mysql"
)

// ErrUnsupportedBackend is returned for unknown backend names.
var ErrUnsupportedBackend = errors.New("unsupported store backend")

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendMemory, BackendSQLite, BackendPostgres, BackendMySQL:
		return b, nil
	case "":
		return BackendMemory, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, s)
	}
}

func (b Backend) driverName() string {
	switch b {
	case BackendPostgres:
		return "pgx"
	case BackendMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// openDB opens a connection pool for backend. MySQL DSNs get multi-statement
// support so migrations can run whole files.
func openDB(ctx context.Context, backend Backend, dsn string) (*sqlx.DB, error) {
	switch backend {
	case BackendSQLite, BackendPostgres:
	case BackendMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.MultiStatements = true
		dsn = cfg.FormatDSN()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}

	db, err := sqlx.Open(backend.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", backend, err)
	}
	if backend == BackendSQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", backend, err)
	}
	return db, nil
}

// SQLStore persists measurements and locations in a SQL database.
type SQLStore struct {
	db      *sqlx.DB
	backend Backend
	logger  *zap.Logger
	metrics *metrics.Collector

	upsertQuery   string
	locationQuery string
}

var (
	_ weather.Store             = (*SQLStore)(nil)
	_ weather.LocationDirectory = (*SQLStore)(nil)
)

// OpenSQL connects to a SQL backend. Call Migrate before first use.
func OpenSQL(ctx context.Context, backend Backend, dsn string, logger *zap.Logger, m *metrics.Collector) (*SQLStore, error) {
	db, err := openDB(ctx, backend, dsn)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("sql store connected", zap.String("backend", string(backend)))

	return &SQLStore{
		db:            db,
		backend:       backend,
		logger:        logger,
		metrics:       m,
		upsertQuery:   upsertStatement(backend, "measurements", []string{"location_id", "dataset", "recorded_at"}, measurementColumns),
		locationQuery: upsertStatement(backend, "locations", []string{"id"}, locationColumns),
	}, nil
}

// DB returns the underlying sqlx.DB instance.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

// Backend returns the configured backend.
func (s *SQLStore) Backend() Backend {
	return s.backend
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

var measurementColumns = []string{
	"location_id", "dataset", "recorded_at", "source",
	"temperature", "humidity", "pressure", "wind_speed", "wind_direction",
	"precipitation", "cloud_cover", "pm10", "pm2_5", "co", "co2", "no2",
	"so2", "o3", "ch4", "uv",
}

var locationColumns = []string{"id", "name", "name_key", "admin", "country", "latitude", "longitude"}

// upsertStatement builds a named INSERT that overwrites every non-key column
// on conflict.
func upsertStatement(backend Backend, table string, keys, columns []string) string {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	named := make([]string, len(columns))
	var sets []string
	for i, c := range columns {
		named[i] = ":" + c
		if isKey[c] {
			continue
		}
		if backend == BackendMySQL {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(named, ", "))
	if backend == BackendMySQL {
		return q + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return q + fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(sets, ", "))
}

type measurementRow struct {
	LocationID    string   `db:"location_id"`
	Dataset       string   `db:"dataset"`
	RecordedAt    int64    `db:"recorded_at"`
	Source        string   `db:"source"`
	Temperature   *float64 `db:"temperature"`
	Humidity      *float64 `db:"humidity"`
	Pressure      *float64 `db:"pressure"`
	WindSpeed     *float64 `db:"wind_speed"`
	WindDirection *float64 `db:"wind_direction"`
	Precipitation *float64 `db:"precipitation"`
	CloudCover    *float64 `db:"cloud_cover"`
	PM10          *float64 `db:"pm10"`
	PM25          *float64 `db:"pm2_5"`
	CO            *float64 `db:"co"`
	CO2           *float64 `db:"co2"`
	NO2           *float64 `db:"no2"`
	SO2           *float64 `db:"so2"`
	O3            *float64 `db:"o3"`
	CH4           *float64 `db:"ch4"`
	UV            *float64 `db:"uv"`
}

func (r *measurementRow) fields() map[series.Field]**float64 {
	return map[series.Field]**float64{
		series.Temperature:   &r.Temperature,
		series.Humidity:      &r.Humidity,
		series.Pressure:      &r.Pressure,
		series.WindSpeed:     &r.WindSpeed,
		series.WindDirection: &r.WindDirection,
		series.Precipitation: &r.Precipitation,
		series.CloudCover:    &r.CloudCover,
		series.PM10:          &r.PM10,
		series.PM25:          &r.PM25,
		series.CO:            &r.CO,
		series.CO2:           &r.CO2,
		series.NO2:           &r.NO2,
		series.SO2:           &r.SO2,
		series.O3:            &r.O3,
		series.CH4:           &r.CH4,
		series.UV:            &r.UV,
	}
}

func rowFromPoint(locationID string, ds weather.Dataset, source string, p series.Point) measurementRow {
	r := measurementRow{
		LocationID: locationID,
		Dataset:    string(ds),
		RecordedAt: p.Time.Unix(),
		Source:     source,
	}
	for f, dst := range r.fields() {
		*dst = p.Get(f)
	}
	return r
}

func (r measurementRow) point() series.Point {
	p := series.NewPoint(time.Unix(r.RecordedAt, 0))
	for f, src := range r.fields() {
		p.Set(f, *src)
	}
	return p
}

// Upsert writes points in one transaction, replacing rows at equal keys.
func (s *SQLStore) Upsert(ctx context.Context, locationID string, ds weather.Dataset, source string, points series.Series) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	start := time.Now()
	defer func() { s.metrics.ObserveQuery("upsert_measurements", time.Since(start)) }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareNamedContext(ctx, s.upsertQuery)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, rowFromPoint(locationID, ds, source, p)); err != nil {
			return 0, fmt.Errorf("upsert measurement at %s: %w", p.Time.Format(time.RFC3339), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}

	s.logger.Debug("measurements upserted",
		zap.String("location_id", locationID),
		zap.String("dataset", string(ds)),
		zap.Int("points", len(points)))
	return len(points), nil
}

// ReadRange returns the points of a series between from and to (inclusive),
// ascending.
func (s *SQLStore) ReadRange(ctx context.Context, locationID string, ds weather.Dataset, from, to time.Time) (series.Series, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveQuery("read_measurements", time.Since(start)) }()

	query := s.db.Rebind(`SELECT ` + strings.Join(measurementColumns, ", ") + `
		FROM measurements
		WHERE location_id = ? AND dataset = ? AND recorded_at >= ? AND recorded_at <= ?
		ORDER BY recorded_at`)

	var rows []measurementRow
	if err := s.db.SelectContext(ctx, &rows, query, locationID, string(ds), from.Unix(), to.Unix()); err != nil {
		return nil, fmt.Errorf("read measurements: %w", err)
	}

	out := make(series.Series, 0, len(rows))
	for _, r := range rows {
		p := r.point()
		// the query bounds are whole seconds; the window is not
		if p.Time.Before(from) || p.Time.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type locationRow struct {
	weather.Location
	NameKey string `db:"name_key"`
}

// Get returns a location by id.
func (s *SQLStore) Get(ctx context.Context, id string) (weather.Location, error) {
	var row locationRow
	query := s.db.Rebind(`SELECT ` + strings.Join(locationColumns, ", ") + ` FROM locations WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return weather.Location{}, fmt.Errorf("%w: %s", weather.ErrLocationNotFound, id)
		}
		return weather.Location{}, fmt.Errorf("get location: %w", err)
	}
	return row.Location, nil
}

// FindByName returns locations whose name matches case-insensitively.
func (s *SQLStore) FindByName(ctx context.Context, name string) ([]weather.Location, error) {
	var rows []locationRow
	query := s.db.Rebind(`SELECT ` + strings.Join(locationColumns, ", ") + `
		FROM locations WHERE name_key = ? ORDER BY id`)
	if err := s.db.SelectContext(ctx, &rows, query, nameKey(name)); err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	out := make([]weather.Location, len(rows))
	for i, r := range rows {
		out[i] = r.Location
	}
	return out, nil
}

// Save inserts or replaces a location.
func (s *SQLStore) Save(ctx context.Context, loc weather.Location) error {
	row := locationRow{Location: loc, NameKey: nameKey(loc.Name)}
	if _, err := s.db.NamedExecContext(ctx, s.locationQuery, row); err != nil {
		return fmt.Errorf("save location: %w", err)
	}
	return nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
