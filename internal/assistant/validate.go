package assistant

import (
	"fmt"
	"regexp"
	"strings"
)

// blockedKeywords are statement kinds the assistant never runs, matched as
// whole words anywhere in the candidate text. EXEC/EXECUTE cover stored
// procedure invocation on dialects that have it.
var blockedKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER",
	"CREATE", "TRUNCATE", "EXEC", "EXECUTE",
}

var blockedRe = regexp.MustCompile(`(?i)\b(` + strings.Join(blockedKeywords, "|") + `)\b`)

// Validate applies the textual read-only safety rules to a candidate
// statement. Rules run in order and the first violation wins. This is a
// safety net, not a parser: anything structurally beginning with SELECT and
// free of blocked keywords passes.
func Validate(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return &ErrValidationRejected{Reason: "empty query"}
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") {
		return &ErrValidationRejected{Reason: "only read-only statements allowed"}
	}

	if m := blockedRe.FindString(trimmed); m != "" {
		return &ErrValidationRejected{
			Reason: fmt.Sprintf("disallowed operation: %s", strings.ToUpper(m)),
		}
	}

	// A single trailing terminator is fine; any other semicolon means a
	// second statement.
	body := strings.TrimSuffix(trimmed, ";")
	if strings.Contains(body, ";") {
		return &ErrValidationRejected{Reason: "multiple statements not allowed"}
	}

	return nil
}
