package statementParser

import (
	"fmt"
	"strings"
)

// FormatError means the workbook structure does not match the expected
// statement layout. The source file has to be fixed, retrying won't help.
type FormatError struct {
	Reason  string
	Missing []string
}

func (e *FormatError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Missing, ", "))
	}
	return e.Reason
}
