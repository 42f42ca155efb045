// Package config loads, normalizes, and validates scriptflow configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SCRIPTFLOW_LLM_API_KEY. The Config type centralizes every knob the daemon
// and CLI need, so scratch directories, storage roots, and external service
// endpoints are discovered in one pass.
package config
