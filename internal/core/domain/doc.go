// Package domain defines the core domain models for ConfStore.
//
// It contains the entry model (typed values, flags), the engine limits,
// the pool handle type, and the structured error taxonomy shared by all
// engine components.
package domain
