// Package media handles uploaded files on disk: per-task working
// directories, filename sanitization, extraction to the canonical audio
// format via ffmpeg, and startup checks for the external binaries the
// pipeline shells out to.
package media
