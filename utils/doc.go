// Package utils provides internal utility functions shared by the dsbplan packages.
// This package is not intended to be imported by external code.
//
// It contains:
//   - Time formatting for the upstream wire protocol and API responses
//   - HTTP client construction with bounded connect/read timeouts
//   - JSON array truncation for cached responses
package utils
