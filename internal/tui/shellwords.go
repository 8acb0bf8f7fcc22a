package tui

import "unicode"

// splitShellWords splits an $EDITOR value into argv. Single and double quotes
// group words; a backslash escapes the next rune except inside single quotes.
func splitShellWords(s string) []string {
	var (
		out    []string
		cur    []rune
		quote  rune
		escape bool
		inWord bool
	)
	for _, r := range s {
		switch {
		case escape:
			cur = append(cur, r)
			escape = false
		case r == '\\' && quote != '\'':
			escape = true
			inWord = true
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
			inWord = true
		case quote == 0 && unicode.IsSpace(r):
			if inWord {
				out = append(out, string(cur))
				cur = cur[:0]
				inWord = false
			}
		default:
			cur = append(cur, r)
			inWord = true
		}
	}
	if inWord {
		out = append(out, string(cur))
	}
	return out
}
