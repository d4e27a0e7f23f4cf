// Package postprocess turns raw model output into a reply that satisfies the output policy.
package postprocess

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis marks a truncated reply.
const Ellipsis = "…"

// Policy enumerates the output rules applied to every generated reply.
type Policy struct {
	// MaxChars caps the reply body in runes, not counting RequiredSuffix. Zero disables the cap.
	MaxChars int
	// RequiredSuffix is appended verbatim, separated by one space, unless the reply already
	// ends with it.
	RequiredSuffix string
	// StripReasoning removes <think>...</think> segments.
	StripReasoning bool
}

var (
	reasoningPattern = regexp.MustCompile(`(?is)<think>.*?</think>`)
	horizontalRuns   = regexp.MustCompile(`[\t\p{Zs}]{2,}`)
	blankLineRuns    = regexp.MustCompile(`\n{3,}`)
	tokenPattern     = regexp.MustCompile(`\S+`)

	fullWidth = strings.NewReplacer(
		"，", ",", "。", ".", "！", "!", "？", "?",
		"：", ":", "；", ";", "（", "(", "）", ")",
	)
)

// Within returns p with MaxChars lowered so that every result, suffix included, fits in
// limit runes.
func (p Policy) Within(limit int) Policy {
	room := max(limit-utf8.RuneCountInString(p.RequiredSuffix)-2, 1)
	if p.MaxChars == 0 || p.MaxChars > room {
		p.MaxChars = room
	}
	return p
}

// trailingNoise is stripped, together with any other whitespace, before a missing suffix
// is appended.
const trailingNoise = "!?. \t\n\r"

func isTrailingNoise(r rune) bool {
	return strings.ContainsRune(trailingNoise, r) || unicode.IsSpace(r)
}

// Process applies the policy. It is total and idempotent:
// Process(Process(s, p), p) == Process(s, p).
// RequiredSuffix is matched and appended verbatim, never normalized.
func Process(raw string, p Policy) string {
	suffix := p.RequiredSuffix

	text := raw
	if p.StripReasoning {
		text = StripReasoning(text)
	}

	join, hasSuffix := "", false
	if suffix != "" {
		trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
		if core := strings.TrimRightFunc(suffix, unicode.IsSpace); strings.HasSuffix(trimmed, core) {
			hasSuffix = true
			rest := strings.TrimSuffix(trimmed, core)
			text = strings.TrimRightFunc(rest, unicode.IsSpace)
			join = separator(rest[len(text):])
		}
	}

	body, truncated := truncate(normalize(text), p.MaxChars)

	if suffix == "" {
		return body
	}
	if hasSuffix && !truncated {
		if body == "" {
			return suffix
		}
		return body + join + suffix
	}

	body = strings.TrimRightFunc(body, isTrailingNoise)
	if body == "" {
		return suffix
	}
	return body + " " + suffix
}

// separator collapses the whitespace between a reply and its existing suffix to one line
// break or one space.
func separator(ws string) string {
	switch {
	case ws == "":
		return ""
	case strings.ContainsAny(ws, "\r\n"):
		return "\n"
	default:
		return " "
	}
}

// StripReasoning removes every complete <think>...</think> segment, markers included. An
// open marker without a close leaves the rest of the text untouched. Removal repeats until
// nothing changes, so segments that only close up after an inner removal go too.
func StripReasoning(text string) string {
	for {
		next := reasoningPattern.ReplaceAllString(text, "")
		if next == text {
			return text
		}
		text = next
	}
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalRuns.ReplaceAllString(text, " ")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	text = fullWidth.Replace(text)
	text = tokenPattern.ReplaceAllStringFunc(text, spaceAfterPunctuation)
	return strings.TrimSpace(text)
}

// spaceAfterPunctuation inserts one space after , . ! ? inside a whitespace-free token when the
// next rune starts a new word. Numbers (3.14, 1,000), dotted names (example.com, main.go) and
// links are left alone.
func spaceAfterPunctuation(token string) string {
	if isLinkToken(token) {
		return token
	}

	runes := []rune(token)
	var b strings.Builder
	b.Grow(len(token) + 4)
	for i, r := range runes {
		b.WriteRune(r)
		if i+1 >= len(runes) {
			continue
		}
		switch r {
		case ',', '.', '!', '?':
		default:
			continue
		}

		next := runes[i+1]
		if unicode.IsSpace(next) || unicode.IsPunct(next) || unicode.IsMark(next) {
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			if unicode.IsDigit(prev) && unicode.IsDigit(next) && (r == '.' || r == ',') {
				continue
			}
			if r == '.' && isASCIIAlnum(prev) && isASCIIAlnum(next) {
				continue
			}
		}
		b.WriteByte(' ')
	}
	return b.String()
}

func isLinkToken(token string) bool {
	lower := strings.ToLower(token)
	return strings.Contains(lower, "://") || strings.Contains(lower, "@") || strings.HasPrefix(lower, "www.")
}

func isASCIIAlnum(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// isTokenSpace matches the separators of tokenPattern (RE2 \s).
func isTokenSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

// truncate cuts text to maxChars runes including the ellipsis. A cut never splits a link:
// it moves back to the start of that token instead.
func truncate(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}

	runes := []rune(text)
	cut := maxChars - 1
	if cut > 0 && !isTokenSpace(runes[cut-1]) && !isTokenSpace(runes[cut]) {
		start, end := cut, cut
		for start > 0 && !isTokenSpace(runes[start-1]) {
			start--
		}
		for end < len(runes) && !isTokenSpace(runes[end]) {
			end++
		}
		if isLinkToken(string(runes[start:end])) {
			cut = start
		}
	}

	head := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace)
	return head + Ellipsis, true
}
