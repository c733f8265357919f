package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marcelsud/vendor-relay/dispatch"
	_ "github.com/lib/pq" // PostgreSQL driver
)

/*
PostgreSQL Repository do dispatch log e do diretório de vendors

- dispatch_logs é append-only; UNIQUE (vendor_id, dispatch_date, slot) é a
  segunda barreira contra envios duplicados, além do ledger
- INSERT ... ON CONFLICT DO NOTHING: conflito vira dispatch.ErrDuplicateEntry
- vendors alimenta o scheduler via ListVendorsWithContactNumber
*/

// Schema creates the tables used by the dispatch scheduler
const Schema = `
	CREATE TABLE IF NOT EXISTS dispatch_logs (
		id UUID PRIMARY KEY,
		vendor_id TEXT NOT NULL,
		dispatch_date DATE NOT NULL,
		slot TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL,
		message_id TEXT,
		success BOOLEAN NOT NULL,
		error TEXT,
		UNIQUE (vendor_id, dispatch_date, slot)
	);
	CREATE INDEX IF NOT EXISTS dispatch_logs_date_idx ON dispatch_logs (dispatch_date);
	CREATE TABLE IF NOT EXISTS vendors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT,
		open_time TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT ''
	);
`

type Repository struct {
	DB *sql.DB
}

var (
	_ dispatch.LogRepository = (*Repository)(nil)
	_ dispatch.Directory     = (*Repository)(nil)
)

// NewRepository cria uma nova instância do repositório PostgreSQL com pool padrão (25, 5, 5 min)
func NewRepository(connectionString string) (*Repository, error) {
	return NewRepositoryWithPoolConfig(connectionString, 25, 5, 5)
}

// NewRepositoryWithPoolConfig cria uma nova instância do repositório PostgreSQL com configuração customizável
// maxOpenConns: máximo de conexões simultâneas (0 = ilimitado)
// maxIdleConns: máximo de conexões inativas mantidas no pool
// maxLifeMinutes: duração máxima em minutos que uma conexão pode ser reutilizada
func NewRepositoryWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Repository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	return newRepositoryFromDB(db, maxOpenConns, maxIdleConns, maxLifeMinutes)
}

// newRepositoryFromDB assume a posse de db: ele é fechado se o ping falhar
func newRepositoryFromDB(db *sql.DB, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Repository, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Repository{
		DB: db,
	}, nil
}

// Record insere uma tentativa de envio; a segunda para o mesmo slot retorna ErrDuplicateEntry
func (r *Repository) Record(ctx context.Context, entry dispatch.LogEntry) error {
	if err := entry.Slot.Validate(); err != nil {
		return fmt.Errorf("validating slot: %w", err)
	}

	query := `
		INSERT INTO dispatch_logs (id, vendor_id, dispatch_date, slot, sent_at, message_id, success, error)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''))
		ON CONFLICT (vendor_id, dispatch_date, slot) DO NOTHING
	`

	result, err := r.DB.ExecContext(ctx, query,
		entry.ID,
		entry.VendorID,
		entry.Date,
		entry.Slot.String(),
		entry.SentAt,
		entry.MessageID,
		entry.Success,
		entry.Error,
	)
	if err != nil {
		return fmt.Errorf("inserting dispatch log: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s/%s/%s", dispatch.ErrDuplicateEntry, entry.VendorID, entry.Date, entry.Slot)
	}

	return nil
}

// Exists verifica se já houve tentativa (com ou sem sucesso) para o slot
func (r *Repository) Exists(ctx context.Context, vendorID, date string, slot dispatch.Slot) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM dispatch_logs WHERE vendor_id = $1 AND dispatch_date = $2 AND slot = $3)`

	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, vendorID, date, slot.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking dispatch log: %w", err)
	}

	return exists, nil
}

// ListByDate retorna as tentativas de um dia em ordem de envio
func (r *Repository) ListByDate(ctx context.Context, date string) ([]dispatch.LogEntry, error) {
	query := `
		SELECT id, vendor_id, to_char(dispatch_date, 'YYYY-MM-DD'), slot, sent_at, message_id, success, error
		FROM dispatch_logs
		WHERE dispatch_date = $1
		ORDER BY sent_at, vendor_id
	`

	rows, err := r.DB.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("selecting dispatch logs: %w", err)
	}
	defer rows.Close()

	var entries []dispatch.LogEntry

	for rows.Next() {
		var (
			e         dispatch.LogEntry
			slot      string
			messageID sql.NullString
			errText   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.VendorID, &e.Date, &slot, &e.SentAt, &messageID, &e.Success, &errText); err != nil {
			return nil, fmt.Errorf("scanning dispatch log: %w", err)
		}
		e.Slot = dispatch.NewSlot(slot)
		e.MessageID = messageID.String
		e.Error = errText.String
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dispatch logs: %w", err)
	}

	return entries, nil
}

// ListVendorsWithContactNumber retorna os vendors com telefone cadastrado
func (r *Repository) ListVendorsWithContactNumber(ctx context.Context) ([]dispatch.Vendor, error) {
	query := `
		SELECT id, name, phone, open_time, timezone
		FROM vendors
		WHERE phone IS NOT NULL AND phone <> ''
		ORDER BY id
	`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("selecting vendors: %w", err)
	}
	defer rows.Close()

	var vendors []dispatch.Vendor

	for rows.Next() {
		var v dispatch.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Phone, &v.OpenTime, &v.Timezone); err != nil {
			return nil, fmt.Errorf("scanning vendor: %w", err)
		}
		vendors = append(vendors, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vendors: %w", err)
	}

	return vendors, nil
}

// UpsertVendor insere ou atualiza um vendor (usado pelo migrate para carregar vendors.yaml)
func (r *Repository) UpsertVendor(ctx context.Context, v dispatch.Vendor) error {
	query := `
		INSERT INTO vendors (id, name, phone, open_time, timezone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, phone = EXCLUDED.phone, open_time = EXCLUDED.open_time, timezone = EXCLUDED.timezone
	`

	if _, err := r.DB.ExecContext(ctx, query, v.ID, v.Name, v.Phone, v.OpenTime, v.Timezone); err != nil {
		return fmt.Errorf("upserting vendor %s: %w", v.ID, err)
	}

	return nil
}

// Close fecha a conexão com o banco de dados
func (r *Repository) Close(ctx context.Context) error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// CreateTables aplica o Schema
func (r *Repository) CreateTables(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// DropTables remove as tabelas (útil para testes)
func (r *Repository) DropTables(ctx context.Context) error {
	query := "DROP TABLE IF EXISTS dispatch_logs, vendors CASCADE"

	if _, err := r.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("dropping tables: %w", err)
	}

	return nil
}
