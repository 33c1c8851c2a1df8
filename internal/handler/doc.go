// Package handler implements the HTTP status API served while monitoring.
//
// The API is read-only:
//
//   - GET /healthz            liveness and monitoring state
//   - GET /api/devices        the inventory
//   - GET /api/devices/{ref}  one device by ID, name, or address
//   - GET /api/rules          the live alert rules
//   - GET /api/alerts         recently triggered alerts
//   - GET /events             triggered alerts as Server-Sent Events
//   - GET /metrics            Prometheus metrics
//
// Errors are returned as JSON with {error, details} and an HTTP status code.
package handler
