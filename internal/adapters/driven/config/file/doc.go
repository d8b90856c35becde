// Package file provides the TOML-backed ConfigStore. Values live in
// config.toml under the lexrag config directory and may be overridden by
// LEXRAG_SECTION_KEY environment variables.
package file
