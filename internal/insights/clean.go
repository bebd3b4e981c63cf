package insights

import "strings"

// cleanModelJSON strips Markdown fences and surrounding prose the model may
// emit despite instructions, keeping only the outermost JSON value delimited
// by start/end (e.g. "[", "]" or "{", "}").
func cleanModelJSON(raw, start, end string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// If there's still junk around the JSON value, keep only from the first
	// opening delimiter to the last closing one.
	if from := strings.Index(s, start); from != -1 {
		if to := strings.LastIndex(s, end); to != -1 && to > from {
			s = s[from : to+len(end)]
			s = strings.TrimSpace(s)
		}
	}

	return s
}
