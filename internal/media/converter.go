package media

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// CanonicalExtension is the file extension of the canonical audio format the
// analysis engine consumes: 16 kHz mono signed 16-bit PCM WAV.
const CanonicalExtension = ".wav"

// Converter extracts the audio stream from an uploaded container into the
// canonical analysis format using ffmpeg. Extraction is deterministic and
// idempotent for the same input: a pre-existing output at the target path is
// overwritten.
type Converter struct {
	ffmpegBinary  string
	logger        *slog.Logger
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewConverter creates a Converter around the given ffmpeg binary.
func NewConverter(ffmpegBinary string, logger *slog.Logger) *Converter {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		ffmpegBinary: ffmpegBinary,
		logger:       logger.With("component", "converter"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Converter) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	c.commandRunner = runner
}

// NeedsExtraction reports whether the uploaded file must be run through
// extraction before analysis. Anything that is not already a WAV file gets
// extracted, which also normalizes sample rate and channel layout.
func (c *Converter) NeedsExtraction(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) != CanonicalExtension
}

// Extract converts the source file to canonical audio at dest. Any failure
// (bad codec, corrupt container, missing binary) is returned as an error;
// the caller treats it as fatal for the submission and does not retry.
func (c *Converter) Extract(ctx context.Context, source, dest string) error {
	args := buildExtractArgs(source, dest)

	c.logger.Debug("extracting audio",
		"source", source,
		"dest", dest)

	if c.commandRunner != nil {
		if err := c.commandRunner(ctx, c.ffmpegBinary, args...); err != nil {
			return fmt.Errorf("ffmpeg extract: %w", err)
		}
		return nil
	}

	cmd := exec.CommandContext(ctx, c.ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// CanonicalPath returns the extraction target path for a source file: the
// same base name with the canonical extension, in the same directory.
func CanonicalPath(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + CanonicalExtension
}

// buildExtractArgs assembles the ffmpeg arguments for extraction to mono
// 16 kHz pcm_s16le WAV, overwriting any existing output.
func buildExtractArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}
