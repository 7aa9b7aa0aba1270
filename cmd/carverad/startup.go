// Startup command parsing, grounded on amken3d-gopper's use of
// google/shlex to tokenize command-line-like strings: carverad accepts
// a single CARVERA_STARTUP_COMMANDS env value containing one or more
// G-code/M-code lines separated by ';' and runs them against the
// session once connected, useful for e.g. "G21;G90;M495".
package main

import (
	"strings"

	"github.com/google/shlex"
)

// parseStartupCommands splits raw on ';' and shell-tokenizes each
// resulting field, then rejoins each field's tokens with a single space
// so quoted G-code comments survive intact.
func parseStartupCommands(raw string) ([]string, error) {
	var lines []string
	for _, field := range strings.Split(raw, ";") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		tokens, err := shlex.Split(field)
		if err != nil {
			return nil, err
		}
		lines = append(lines, strings.Join(tokens, " "))
	}
	return lines, nil
}
