// Package job defines the job entity, its statuses, and the store
// interface that persists it.
//
// # Job Entity
//
// A [Job] is an escrowed agreement. Its identity, parties, terms and
// amount are fixed at creation; only the status and the fields the
// transition table allows change afterwards:
//
//	created → accepted → delivered → completed
//	created → cancelled
//	accepted | delivered → disputed → completed | cancelled
//
// Completed and cancelled are terminal. Jobs are never deleted; terminal
// records stay as the audit trail.
//
// # Store
//
// [Store] assigns sequential ids and applies every change through
// [Store.UpdateJob], which runs a [Mutator] on a private copy under
// per-job mutual exclusion. Backends use [Apply] inside their critical
// section so that immutable fields, versioning and transfer stamping are
// enforced identically everywhere.
package job
