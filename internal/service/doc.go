// Package service implements the application service layer, coordinating
// between the HTTP handlers, the media workspace, the persistence layer and
// the background task runner. Handlers depend on the interfaces defined
// here rather than on concrete implementations.
package service
