// Package api contains the HTTP handlers, request and response models, and
// middleware for the analysis service's REST endpoints. Handlers translate
// between HTTP and the service layer; they hold no business logic.
package api
