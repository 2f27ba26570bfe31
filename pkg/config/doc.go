// Package config loads the configuration of the rxmux binary.
//
// Files are YAML (.yaml, .yml) or JSON (anything else):
//
//	server:
//	  addr: ":8080"
//	  shutdownTimeout: 10s
//	logging:
//	  level: debug
//	  format: json
//	pipeline:
//	  timeout: 2s
//	  joinMaxAge: 1m
//	guard:
//	  jwtSecret: s3cret
//
// Durations are Go duration strings. Environment variables RXMUX_ADDR,
// RXMUX_LOG_LEVEL and RXMUX_LOG_FORMAT override the file.
package config
