// Package file provides file-based configuration for lifedex.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage with flat key access
//   - AppConfig / LoadAppConfig: typed view of config.toml with defaults
//   - PromptStore: user-editable overrides for LLM digester prompts
package file
