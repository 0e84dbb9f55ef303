package index

import (
	"strings"
)

// matchLines returns the lines of body containing any whitespace-separated
// term of query, case-insensitively. Identical line texts are reported once.
func matchLines(body, query string) []Line {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}
	var out []Line
	seen := map[string]struct{}{}
	for i, line := range strings.Split(body, "\n") {
		lower := strings.ToLower(line)
		for _, term := range terms {
			if !strings.Contains(lower, term) {
				continue
			}
			text := strings.TrimSpace(line)
			if _, dup := seen[text]; !dup {
				seen[text] = struct{}{}
				out = append(out, Line{Num: i + 1, Text: text})
			}
			break
		}
	}
	return out
}
