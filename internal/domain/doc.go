// Package domain defines the core types shared by every netpilot component.
//
// # Devices
//
// Device is an inventory entry: address, friendly name, vendor family tag and
// the facts learned after connecting. The inventory store owns devices; the
// rest of the system receives them by value.
//
// Credentials carry connection secrets for a single call. They are resolved
// on demand and never stored alongside a device.
//
// # Canonical Records
//
// Interface, Vlan, Route, AclFilter, AclRule and VersionInfo are
// vendor-independent snapshots produced only by vendor parsers. Records hold
// plain values and never reference a live session.
//
// # Commands
//
// CommandBatch is an ordered command list tagged as a read-only query or a
// configuration change. Configuration batches are never saved implicitly.
//
// # Alerts
//
// AlertRule binds a device, a metric, a target (usually an interface name)
// and a condition. TriggeredAlert is emitted every poll while a rule matches.
//
// # Errors
//
// errors.go holds the sentinel and typed errors used across the module so
// callers can tell "no data" from "operation failed".
package domain
