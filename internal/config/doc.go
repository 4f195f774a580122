// Package config loads and validates application configuration from
// environment variables (INKFORGE_ prefix) and an optional config.yaml,
// using viper for loading and go-playground/validator for validation.
// Environment variables take precedence over file values.
package config
