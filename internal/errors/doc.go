// Package apperrors defines the typed errors and process exit codes shared
// across the application. Errors carry enough structure (commodity, date,
// perturbation key) for callers to report failures precisely without parsing
// message strings.
package apperrors
