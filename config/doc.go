// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// Credentials and the database DSN may be overridden from the environment so
// they never have to live in the file.
package config
