package browser

import (
	"regexp"
	"strings"
)

var hasTextPattern = regexp.MustCompile(`^(.*?):has-text\(\s*["'](.*)["']\s*\)$`)

// splitHasText separates a trailing :has-text("...") pseudo-class from the
// CSS part of selector. Drivers without native support match the text
// themselves.
func splitHasText(selector string) (css, text string) {
	m := hasTextPattern.FindStringSubmatch(strings.TrimSpace(selector))
	if m == nil {
		return selector, ""
	}
	css = strings.TrimSpace(m[1])
	if css == "" {
		css = "*"
	}
	return css, m[2]
}
