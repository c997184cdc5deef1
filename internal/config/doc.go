// Package config handles configuration loading, parsing, and validation
// from environment variables, an optional .env file and an optional YAML
// file. It provides type-safe access to the settings needed by the gate,
// the response cache, the storage adapters and the Gemini backend, while
// keeping configuration details separate from orchestration logic.
package config
