package helpers

import "strings"

// UnwrapReply strips what transports add around a model reply: surrounding
// whitespace, a UTF-8 BOM and one enclosing Markdown code fence (``` or ~~~,
// optionally tagged). Anything else is returned untouched.
func UnwrapReply(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "\uFEFF"))
	for _, fence := range []string{"```", "~~~"} {
		if !strings.HasPrefix(s, fence) || !strings.HasSuffix(s, fence) || len(s) < 2*len(fence) {
			continue
		}
		inner := s[len(fence) : len(s)-len(fence)]
		nl := strings.IndexByte(inner, '\n')
		if nl < 0 {
			return s
		}
		// The opening line may carry a language tag only.
		if tag := strings.TrimSpace(inner[:nl]); strings.ContainsAny(tag, " {[\"") {
			return s
		}
		return strings.TrimSpace(inner[nl+1:])
	}
	return s
}
