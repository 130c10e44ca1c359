// Package analysis defines the boundary to the opaque speech analysis engine
// and the wrapper that packages the engine's output into the result payload
// stored on a completed task.
package analysis
