package splitfile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cxz/splitgraph/internal/apperrors"
)

var paramPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

const escapedDollarSentinel = "\x00SGR_DOLLAR\x00"

// Preprocess collapses backslash-newline line continuations and
// substitutes $PARAM occurrences from params, honoring \$ as an escape
// for a literal dollar sign. Any $NAME left unresolved after
// substitution is a fatal parse error, per spec.md §4.5.
func Preprocess(text string, params map[string]string) (string, error) {
	text = strings.ReplaceAll(text, "\\\n", "")
	text = strings.ReplaceAll(text, "\\$", escapedDollarSentinel)

	var missing []string
	substituted := paramPattern.ReplaceAllStringFunc(text, func(tok string) string {
		name := tok[1:]
		if v, ok := params[name]; ok {
			return v
		}
		missing = append(missing, name)
		return tok
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: unresolved parameter(s) %s", apperrors.ErrUnresolvedParam, strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(substituted, escapedDollarSentinel, "$"), nil
}
