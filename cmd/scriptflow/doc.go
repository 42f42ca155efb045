// Package main hosts the scriptflow CLI entrypoint and command graph.
//
// The Cobra-based command tree works directly against the session store:
// registering sessions, inspecting pipeline state, resetting failed stages,
// and scaffolding configuration. It centralizes configuration resolution so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
