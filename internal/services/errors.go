package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool marks adapter failures (probe, transcriber, LLM, uploader, notifier).
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks malformed inputs such as a zero-length video or an unknown provider.
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	// ErrTransient marks file system read/write failures on state files.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// classes is ordered: the first marker matched by errors.Is decides the
// kind and hint.
var classes = []struct {
	marker error
	kind   string
	hint   string
}{
	{ErrNotFound, "not_found", "check that the file or request still exists"},
	{ErrValidation, "invalid_input", "fix the input and retry"},
	{ErrConfiguration, "configuration", "run 'onemin config validate' and set the named key"},
	{ErrExternalTool, "adapter_failure", "check the external service or tool output and retry"},
	{ErrTimeout, "timeout", "retry once the source is reachable"},
	{ErrTransient, "transient_io", "check logs for details"},
}

// Kind returns a short label for the marker carried by err, "unknown" when
// it carries none, and "" for nil.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range classes {
		if errors.Is(err, c.marker) {
			return c.kind
		}
	}
	return "unknown"
}

// Hint returns an operator-facing next step for the marker carried by err.
func Hint(err error) string {
	for _, c := range classes {
		if errors.Is(err, c.marker) {
			return c.hint
		}
	}
	return "check logs for details"
}

func buildDetail(stage, operation, message string) string {
	var parts []string
	for _, p := range []string{stage, operation, message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
