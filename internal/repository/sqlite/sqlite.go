package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"netpilot/internal/domain"
	"netpilot/internal/repository"
)

var _ repository.Repository = (*Repository)(nil)

// Repository is the device inventory and alert rule store backed by SQLite
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Repository
type Option func(*Repository)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New opens (or creates) the database at dbPath and applies the schema.
// ":memory:" gives a private in-memory store.
func New(dbPath string, opts ...Option) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: in-memory databases are per connection and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(repo)
	}
	repo.logger = repo.logger.Named("sqlite")

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		port INTEGER NOT NULL DEFAULT 22,
		vendor TEXT NOT NULL,
		credential_ref TEXT,
		os_version TEXT,
		model TEXT,
		hostname TEXT,
		learned_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (address, port)
	);

	CREATE TABLE IF NOT EXISTS alert_rules (
		id TEXT PRIMARY KEY,
		name TEXT,
		device_id TEXT NOT NULL,
		metric TEXT NOT NULL,
		target TEXT NOT NULL,
		condition TEXT NOT NULL,
		expected TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_devices_vendor ON devices(vendor);
	CREATE INDEX IF NOT EXISTS idx_alert_rules_device ON alert_rules(device_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ListDevices returns every device ordered by name
func (r *Repository) ListDevices(ctx context.Context) ([]domain.Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY name, address`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []domain.Device{}
	for rows.Next() {
		var row deviceRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		device, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	return devices, nil
}

// GetDevice returns one device by ID
func (r *Repository) GetDevice(ctx context.Context, id string) (domain.Device, error) {
	var row deviceRow
	err := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Device{}, fmt.Errorf("%w: device %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Device{}, fmt.Errorf("failed to get device: %w", err)
	}
	return row.toDomain()
}

// FindDevice resolves a device by ID, name, or address
func (r *Repository) FindDevice(ctx context.Context, ref string) (domain.Device, error) {
	var row deviceRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE id = ? OR name = ? OR address = ? ORDER BY id = ? DESC LIMIT 1`,
		ref, ref, ref, ref,
	).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Device{}, fmt.Errorf("%w: device %s", domain.ErrNotFound, ref)
	}
	if err != nil {
		return domain.Device{}, fmt.Errorf("failed to find device: %w", err)
	}
	return row.toDomain()
}

// AddDevice inserts a device, assigning an ID when it has none
func (r *Repository) AddDevice(ctx context.Context, device domain.Device) (domain.Device, error) {
	if device.ID == "" {
		device.ID = uuid.New().String()
	}
	if device.Port <= 0 {
		device.Port = domain.DefaultSSHPort
	}
	if device.Name == "" {
		device.Name = device.Address
	}
	now := r.now().UTC()
	device.CreatedAt, device.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO devices (`+deviceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deviceInsertArgs(device)...,
	)
	if err != nil {
		return domain.Device{}, fmt.Errorf("failed to insert device %s: %w", device.Key(), err)
	}
	r.logger.Debug("device added", zap.String("id", device.ID), zap.String("address", device.Key()))
	return device, nil
}

// UpdateDevice replaces the editable fields of a stored device
func (r *Repository) UpdateDevice(ctx context.Context, device domain.Device) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices SET name = ?, address = ?, port = ?, vendor = ?, credential_ref = ?, updated_at = ?
		WHERE id = ?
	`, device.Name, device.Address, device.EffectivePort(), string(device.Vendor),
		stringToNull(device.CredentialRef), formatTime(r.now()), device.ID)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	return expectOneRow(res, "device", device.ID)
}

// UpdateDeviceFacts merges learned facts into the stored device
func (r *Repository) UpdateDeviceFacts(ctx context.Context, id string, facts domain.DeviceFacts) error {
	current, err := r.GetDevice(ctx, id)
	if err != nil {
		return err
	}
	merged := current.Facts.Merge(facts)

	res, err := r.db.ExecContext(ctx, `
		UPDATE devices SET os_version = ?, model = ?, hostname = ?, learned_at = ?, updated_at = ?
		WHERE id = ?
	`, stringToNull(merged.OSVersion), stringToNull(merged.Model), stringToNull(merged.Hostname),
		timePtrToNull(merged.LearnedAt), formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update facts: %w", err)
	}
	return expectOneRow(res, "device", id)
}

// DeleteDevice removes a device and its alert rules
func (r *Repository) DeleteDevice(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM alert_rules WHERE device_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete rules: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if err := expectOneRow(res, "device", id); err != nil {
		return err
	}
	return tx.Commit()
}

// ImportDevices inserts every device whose address:port is not yet stored
// and returns how many were added
func (r *Repository) ImportDevices(ctx context.Context, devices []domain.Device) (int, error) {
	existing, err := r.ListDevices(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]bool, len(existing))
	for _, d := range existing {
		known[d.Key()] = true
	}

	added := 0
	for _, d := range devices {
		if known[d.Key()] {
			continue
		}
		if _, err := r.AddDevice(ctx, d); err != nil {
			return added, err
		}
		known[d.Key()] = true
		added++
	}
	return added, nil
}

// ListAlertRules returns every stored rule
func (r *Repository) ListAlertRules(ctx context.Context) ([]domain.AlertRule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ruleColumns+` FROM alert_rules ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer rows.Close()

	rules := []domain.AlertRule{}
	for rows.Next() {
		var row ruleRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rules: %w", err)
	}
	return rules, nil
}

// AddAlertRule stores a rule for an existing device
func (r *Repository) AddAlertRule(ctx context.Context, rule domain.AlertRule) (domain.AlertRule, error) {
	if _, err := r.GetDevice(ctx, rule.DeviceID); err != nil {
		return domain.AlertRule{}, err
	}
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO alert_rules (`+ruleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, stringToNull(rule.Name), rule.DeviceID, string(rule.Metric), rule.Target,
		string(rule.Condition), rule.Expected, formatTime(r.now()),
	)
	if err != nil {
		return domain.AlertRule{}, fmt.Errorf("failed to insert alert rule: %w", err)
	}
	return rule, nil
}

// DeleteAlertRule removes a rule
func (r *Repository) DeleteAlertRule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert rule: %w", err)
	}
	return expectOneRow(res, "alert rule", id)
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
