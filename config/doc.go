// Package config provides configuration loading and validation for the
// convoy orchestrator.
//
// It uses Viper to load configuration from a YAML file with environment
// variable overrides, and godotenv to pick up .env files. Structural
// validation runs through go-playground/validator so a malformed config
// fails at startup, never mid-run.
package config
