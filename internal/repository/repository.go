package repository

import (
	"context"

	"netpilot/internal/domain"
)

// DeviceStore is the device inventory
type DeviceStore interface {
	// Read operations
	ListDevices(ctx context.Context) ([]domain.Device, error)
	GetDevice(ctx context.Context, id string) (domain.Device, error)
	FindDevice(ctx context.Context, ref string) (domain.Device, error)

	// Write operations
	AddDevice(ctx context.Context, device domain.Device) (domain.Device, error)
	UpdateDevice(ctx context.Context, device domain.Device) error
	UpdateDeviceFacts(ctx context.Context, id string, facts domain.DeviceFacts) error
	DeleteDevice(ctx context.Context, id string) error

	// Bulk operations
	ImportDevices(ctx context.Context, devices []domain.Device) (int, error)
}

// RuleStore holds alert rules added outside the rules file
type RuleStore interface {
	ListAlertRules(ctx context.Context) ([]domain.AlertRule, error)
	AddAlertRule(ctx context.Context, rule domain.AlertRule) (domain.AlertRule, error)
	DeleteAlertRule(ctx context.Context, id string) error
}

// Repository defines the interface for netpilot data access
type Repository interface {
	DeviceStore
	RuleStore

	// Close releases resources
	Close() error
}
