package sqpack

import "strings"

// parseEXL parses an EXL manifest: ASCII, CRLF-separated, first line
// "EXLT,<version>", every subsequent line "<name>,<id>". Only the name
// column is meaningful to callers.
func parseEXL(data []byte) ([]string, error) {
	text := string(data)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	if len(lines) == 0 || !strings.HasPrefix(lines[0], "EXLT,") {
		return nil, newResourcef(nil, "Failed to read manifest. Missing EXLT header.")
	}

	var names []string
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, _, ok := strings.Cut(line, ",")
		if !ok {
			return nil, newResourcef(nil, "Failed to read manifest. Malformed line %q.", line)
		}
		names = append(names, name)
	}
	return names, nil
}
