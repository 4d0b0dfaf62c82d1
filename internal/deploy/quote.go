package deploy

import "strings"

const safeChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789@%+=:,./-_"

// Quote renders s safe for a POSIX shell: unchanged when it contains
// only safe characters, otherwise single-quoted with embedded single
// quotes escaped.
func Quote(s string) string {
	if s == "" {
		return "''"
	}

	safe := true
	for _, r := range s {
		if !strings.ContainsRune(safeChars, r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
