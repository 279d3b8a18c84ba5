package commands

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// IsCommand reports whether text should be routed to the dispatcher: the
// trimmed text starts with '/', has a non-empty remainder, and the first
// character after the slash is alphabetic.
func IsCommand(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '/' {
		return false
	}
	next := text[1]
	return (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z')
}

// Parse tokenizes a command line into name, positional args, kwargs, and
// flags. Tokenization is POSIX-shell-style with quote handling; if the
// tokenizer rejects the input, whitespace splitting is the fallback.
//
// Token rules after the name:
//
//	--key=value            kwargs[key] = value
//	--key value            kwargs[key] = value (value must not start with -)
//	--key                  flags[key]
//	-x                     flags[x] (exactly two characters)
//	anything else          positional
func Parse(text string) (*ParsedCommand, error) {
	raw := text
	text = strings.TrimSpace(text)
	if !IsCommand(text) {
		return nil, fmt.Errorf("not a command: %q", raw)
	}

	rest := text[1:]
	tokens, err := shlex.Split(rest)
	if err != nil {
		tokens = strings.Fields(rest)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	parsed := &ParsedCommand{
		Name:   strings.ToLower(tokens[0]),
		Kwargs: make(map[string]string),
		Flags:  make(map[string]bool),
		Raw:    raw,
	}

	operands := tokens[1:]
	for i := 0; i < len(operands); i++ {
		token := operands[i]
		switch {
		case strings.HasPrefix(token, "--"):
			key := token[2:]
			if eq := strings.Index(key, "="); eq >= 0 {
				parsed.Kwargs[key[:eq]] = key[eq+1:]
				continue
			}
			if i+1 < len(operands) && !strings.HasPrefix(operands[i+1], "-") {
				parsed.Kwargs[key] = operands[i+1]
				i++
				continue
			}
			parsed.Flags[key] = true
		case len(token) == 2 && token[0] == '-' && token[1] != '-':
			parsed.Flags[string(token[1])] = true
		default:
			parsed.Args = append(parsed.Args, token)
		}
	}

	return parsed, nil
}
