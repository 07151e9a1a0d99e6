package binding

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// benchmarkQuery is the fixed query every direct binding runs. It touches
// the server without depending on any schema, so any reachable Postgres
// works as a benchmark target.
const benchmarkQuery = "SELECT current_database() AS database, now() AS queried_at"

// DB wraps one direct binding's connection pool. The pool is created
// lazily on first use so the server starts even when a binding is
// temporarily unreachable.
type DB struct {
	binding Binding

	pool    *pgxpool.Pool
	once    sync.Once
	initErr error
	mu      sync.Mutex
}

// NewDB returns an unconnected DB for the given binding.
func NewDB(b Binding) *DB {
	return &DB{binding: b}
}

// Binding returns the binding this DB belongs to.
func (d *DB) Binding() Binding {
	return d.binding
}

func (d *DB) connect(ctx context.Context) error {
	d.once.Do(func() {
		config, err := pgxpool.ParseConfig(d.binding.ConnString)
		if err != nil {
			d.initErr = fmt.Errorf("invalid connection string for binding %q: %w",
				d.binding.Name, err)
			return
		}
		config.MaxConns = 10
		config.MinConns = 1
		pool, err := pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			d.initErr = err
			return
		}
		d.pool = pool
	})
	return d.initErr
}

// QueryOne runs the fixed benchmark query and returns the single result row
// as a column-name-to-value map.
func (d *DB) QueryOne(ctx context.Context) (map[string]any, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx, benchmarkQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("benchmark query returned no rows")
	}
	values, err := rows.Values()
	if err != nil {
		return nil, err
	}
	row := make(map[string]any, len(values))
	for i, fd := range rows.FieldDescriptions() {
		row[fd.Name] = values[i]
	}
	return row, rows.Err()
}

// Close releases the pool, if one was ever created.
func (d *DB) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
}
