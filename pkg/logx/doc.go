// Package logx wraps zerolog behind a small, service-managed logger.
//
// Components hold a Logger (usually derived via With for a fixed "comp"
// field); the app owns the Service and can re-apply level/sink config at
// runtime without re-wiring component loggers.
package logx
