// Package repository defines the data access interfaces for netpilot.
//
// The inventory owns devices and stored alert rules. Devices are handed to
// the core by value per call; nothing below the CLI holds a reference to the
// store except through the narrow interfaces the orchestrators and the
// pipeline declare. The implementation is in the sqlite subpackage.
//
// # SQLite Implementation
//
// The sqlite implementation uses modernc.org/sqlite in WAL mode. It creates
// the schema on open, stores timestamps as RFC 3339 text, and deletes a
// device's rules together with the device.
//
// # Testing
//
// The sqlite repository is tested against in-memory databases.
package repository
