// Package namespace assigns small integer namespace ids to names and
// manages the ref-counted handle pool that gates namespaced store
// operations.
//
// Namespace id 0 is the default namespace. It is created at
// construction and can never be deallocated, only cleared.
package namespace
