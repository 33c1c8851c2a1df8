package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"netpilot/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Times are stored as RFC 3339 text so the file stays readable with the
// sqlite3 shell.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// timePtrToNull converts *time.Time to a nullable timestamp string
func timePtrToNull(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

// nullToTimePtr parses a nullable timestamp string
func nullToTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ============================================================================
// Device Row Scanner
// ============================================================================
//
// CRITICAL: Column order must match between:
// - deviceColumns constant
// - scanArgs() return slice
// - deviceInsertArgs()

// deviceRow holds all columns from a device query for scanning
type deviceRow struct {
	ID            string
	Name          string
	Address       string
	Port          int
	Vendor        string
	CredentialRef sql.NullString
	OSVersion     sql.NullString
	Model         sql.NullString
	Hostname      sql.NullString
	LearnedAt     sql.NullString
	CreatedAt     string
	UpdatedAt     string
}

// scanArgs returns pointers to all fields for sql.Scan()
func (r *deviceRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,            // 1
		&r.Name,          // 2
		&r.Address,       // 3
		&r.Port,          // 4
		&r.Vendor,        // 5
		&r.CredentialRef, // 6
		&r.OSVersion,     // 7
		&r.Model,         // 8
		&r.Hostname,      // 9
		&r.LearnedAt,     // 10
		&r.CreatedAt,     // 11
		&r.UpdatedAt,     // 12
	}
}

// toDomain converts the scanned row to a domain.Device
func (r *deviceRow) toDomain() (domain.Device, error) {
	device := domain.Device{
		ID:            r.ID,
		Name:          r.Name,
		Address:       r.Address,
		Port:          r.Port,
		Vendor:        domain.VendorFamily(r.Vendor),
		CredentialRef: nullToString(r.CredentialRef),
		Facts: domain.DeviceFacts{
			OSVersion: nullToString(r.OSVersion),
			Model:     nullToString(r.Model),
			Hostname:  nullToString(r.Hostname),
		},
	}

	var err error
	if device.Facts.LearnedAt, err = nullToTimePtr(r.LearnedAt); err != nil {
		return domain.Device{}, fmt.Errorf("parse learned_at of %s: %w", r.ID, err)
	}
	if device.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return domain.Device{}, fmt.Errorf("parse created_at of %s: %w", r.ID, err)
	}
	if device.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return domain.Device{}, fmt.Errorf("parse updated_at of %s: %w", r.ID, err)
	}
	return device, nil
}

// deviceColumns returns the SELECT column list for device queries
const deviceColumns = `id, name, address, port, vendor, credential_ref,
	os_version, model, hostname, learned_at, created_at, updated_at`

// deviceInsertArgs prepares arguments for device INSERT in deviceColumns order
func deviceInsertArgs(d domain.Device) []interface{} {
	return []interface{}{
		d.ID,
		d.Name,
		d.Address,
		d.EffectivePort(),
		string(d.Vendor),
		stringToNull(d.CredentialRef),
		stringToNull(d.Facts.OSVersion),
		stringToNull(d.Facts.Model),
		stringToNull(d.Facts.Hostname),
		timePtrToNull(d.Facts.LearnedAt),
		formatTime(d.CreatedAt),
		formatTime(d.UpdatedAt),
	}
}

// ============================================================================
// Alert Rule Row Scanner
// ============================================================================

// ruleRow holds all columns from an alert rule query for scanning
type ruleRow struct {
	ID        string
	Name      sql.NullString
	DeviceID  string
	Metric    string
	Target    string
	Condition string
	Expected  string
	CreatedAt string
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match ruleColumns order exactly
func (r *ruleRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,
		&r.Name,
		&r.DeviceID,
		&r.Metric,
		&r.Target,
		&r.Condition,
		&r.Expected,
		&r.CreatedAt,
	}
}

func (r *ruleRow) toDomain() domain.AlertRule {
	return domain.AlertRule{
		ID:        r.ID,
		Name:      nullToString(r.Name),
		DeviceID:  r.DeviceID,
		Metric:    domain.Metric(r.Metric),
		Target:    r.Target,
		Condition: domain.Condition(r.Condition),
		Expected:  r.Expected,
	}
}

const ruleColumns = `id, name, device_id, metric, target, condition, expected, created_at`
