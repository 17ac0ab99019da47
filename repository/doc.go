// Package repository defines the contract every repository in this module
// implements, together with the opaque query documents and the change-event
// surface that contract carries.
//
// # Contract
//
// Repository[T] is the minimal read/write operation set: single and bulk
// inserts, partial patches, filter-driven updates and deletes, and the read
// family (FindOne, FindByID, FindMany, FindManyPage). Concrete
// implementations bind a named collection on a document store; decorators
// such as repositorycache wrap the same interface and compose at
// construction time.
//
// # Absence semantics
//
// A read that matches nothing returns the zero value and a false bool with a
// nil error. Errors are reserved for store-level failures, so callers check
// for absence explicitly instead of catching sentinel errors.
//
// # Query documents
//
// Filter and Update are plain maps treated as opaque documents. The core
// never probes them ad hoc; it uses the explicit inspection operations
// (ExactID, ID, SetClause, IsEmpty) and otherwise forwards the documents to
// the store unchanged.
//
// # Change events
//
// Every repository instance owns its own Emitter: an explicit subscriber
// list scoped to that instance's lifetime. Events fire synchronously after a
// successful mutation and are neither persisted nor replayed.
package repository
