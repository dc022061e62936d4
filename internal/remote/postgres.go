package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver registration.

	"namematch/migrations/postgres"
)

// Postgres implements Store on a single JSONB table.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects to dsn and applies the remote schema.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := postgres.Run(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// Put implements Store.
func (p *Postgres) Put(ctx context.Context, r Record) error {
	fields, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO remote_records (kind, id, fields, updated_at)
		 VALUES ($1, $2, $3::jsonb, now())
		 ON CONFLICT (kind, id) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`,
		string(r.Kind), r.ID, string(fields),
	)
	if err != nil {
		return fmt.Errorf("put %s record: %w", r.Kind, err)
	}
	return nil
}

// Query implements Store.
func (p *Postgres) Query(ctx context.Context, q Query) ([]Record, error) {
	stmt, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s records: %w", q.Kind, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		fields := map[string]string{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode fields of %s: %w", id, err)
		}
		out = append(out, Record{Kind: q.Kind, ID: id, Fields: fields})
	}
	return out, rows.Err()
}

// Delete implements Store.
func (p *Postgres) Delete(ctx context.Context, kind Kind, id string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM remote_records WHERE kind = $1 AND id = $2`, string(kind), id)
	if err != nil {
		return fmt.Errorf("delete %s record: %w", kind, err)
	}
	return nil
}

func buildSelect(q Query) (string, []any, error) {
	var b strings.Builder
	args := []any{string(q.Kind)}
	b.WriteString(`SELECT id, fields FROM remote_records WHERE kind = $1`)

	for _, p := range q.Where {
		args = append(args, p.Field, p.Value)
		fieldArg, valueArg := len(args)-1, len(args)
		switch p.Op {
		case OpEq:
			fmt.Fprintf(&b, ` AND fields->>$%d = $%d`, fieldArg, valueArg)
		case OpNe:
			fmt.Fprintf(&b, ` AND fields->>$%d IS DISTINCT FROM $%d`, fieldArg, valueArg)
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", p.Op)
		}
	}

	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, ` ORDER BY fields->>$%d %s, id`, len(args), dir)
	} else {
		b.WriteString(` ORDER BY id`)
	}

	if q.Limit > 0 {
		fmt.Fprintf(&b, ` LIMIT %d`, q.Limit)
	}
	return b.String(), args, nil
}
