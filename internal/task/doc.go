// Package task provides the background processing infrastructure for the
// speech analysis pipeline: a buffered task queue, a bounded worker pool
// runner, and the analysis task that executes one submission end to end.
package task
