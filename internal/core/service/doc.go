// Package service provides the configuration store façade.
//
// Manager composes the entry table, the namespace manager, the change
// callback registry, the optional cipher, and the optional persistence
// backend behind one single-threaded API. Callers that share a Manager
// across goroutines must serialize access themselves.
package service
