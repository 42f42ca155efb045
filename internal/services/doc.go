// Package services holds shared plumbing used by every job and capability:
// marker errors with a uniform wrap helper, and context accessors for the
// session, job, and correlation identifiers that flow through a tick.
package services
