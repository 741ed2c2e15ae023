package storage

import (
	"fmt"
	"strings"
	"unicode"
)

const maxSegmentLen = 100

// SanitizeSegment makes a name safe for use as a path segment on every
// filesystem and object store we mirror to. Control characters are stripped,
// reserved characters replaced, length capped.
func SanitizeSegment(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsControl(r):
			// dropped
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		out = "_"
	}
	if len(out) > maxSegmentLen {
		out = out[:maxSegmentLen]
	}
	return out
}

// ArtifactFilename builds the fully qualified filename. Encoding roster id,
// group, display name, assignment and attempt makes collisions impossible
// once the attempt number is valid.
func ArtifactFilename(rosterNumber, groupName, displayName, assignmentTitle string, attempt int, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s_%s_%s_%s_attempt%d%s",
		SanitizeSegment(rosterNumber),
		SanitizeSegment(groupName),
		SanitizeSegment(displayName),
		SanitizeSegment(assignmentTitle),
		attempt,
		ext,
	)
}
