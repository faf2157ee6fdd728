// Package envgate verifies that the running Go runtime is recent enough
// before any command-line handling begins. Builds from source with an
// outdated toolchain produce confusing failures deep inside the pipeline,
// so the binary refuses to start and prints a framed diagnostic instead.
package envgate

import (
	"fmt"
	"strconv"
	"strings"
)

// Minimum supported runtime release. Older point releases of the same
// minor are accepted.
const (
	minMajor = 1
	minMinor = 24
)

// UnsupportedError reports a runtime older than the supported minimum.
type UnsupportedError struct {
	Detected string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("instrain requires go%d.%d or later, but this binary was built with %s", minMajor, minMinor, e.Detected)
}

// Check inspects a runtime version string such as "go1.24.3" and returns an
// *UnsupportedError when the release predates the supported minimum.
// Development builds ("devel ...") and strings that do not follow the
// release format pass; the gate only rejects versions it can positively
// identify as too old.
func Check(version string) error {
	major, minor, ok := parseRelease(version)
	if !ok {
		return nil
	}
	if major > minMajor {
		return nil
	}
	if major == minMajor && minor >= minMinor {
		return nil
	}
	return &UnsupportedError{Detected: version}
}

// parseRelease extracts the major and minor numbers from a release-format
// version string. The reported ok is false for devel builds, release
// candidates of unreleased majors, and anything else that cannot be read
// as goMAJOR.MINOR.
func parseRelease(version string) (major, minor int, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(version), "go")
	if !found {
		return 0, 0, false
	}
	// Strip build metadata such as " X:nocoverageredesign".
	if idx := strings.IndexByte(rest, ' '); idx >= 0 {
		rest = rest[:idx]
	}
	parts := strings.SplitN(rest, ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minor, err = strconv.Atoi(leadingDigits(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}

// leadingDigits trims suffixes like "rc1" or "beta2" from a version segment.
func leadingDigits(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s[:i]
		}
	}
	return s
}

// Banner renders the gate failure as a framed block so it stands out from
// ordinary command output.
func Banner(err error) string {
	lines := []string{
		"UNSUPPORTED RUNTIME",
		"",
		err.Error(),
		fmt.Sprintf("Rebuild with go%d.%d or newer and try again.", minMajor, minMinor),
	}
	width := 0
	for _, line := range lines {
		if len(line) > width {
			width = len(line)
		}
	}
	border := strings.Repeat("*", width+4)
	var b strings.Builder
	b.WriteString(border)
	b.WriteByte('\n')
	for _, line := range lines {
		fmt.Fprintf(&b, "* %-*s *\n", width, line)
	}
	b.WriteString(border)
	return b.String()
}
