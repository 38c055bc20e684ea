package chat

import "strings"

type SpanKind int

const (
	SpanText SpanKind = iota
	SpanStrong
	SpanEmphasis
	SpanCode
	SpanLink
)

// Span is a run of answer text with one inline style.
type Span struct {
	Kind SpanKind
	Text string
	URL  string
}

// Format splits answer text into styled spans. It understands **strong**,
// *emphasis*, `code`, [label](url) and bare http(s) links. Unmatched markers
// are kept as literal text.
func Format(text string) []Span {
	var (
		spans []Span
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			spans = append(spans, Span{Kind: SpanText, Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(text); {
		rest := text[i:]

		switch {
		case rest[0] == '`':
			if end := strings.IndexByte(rest[1:], '`'); end > 0 {
				flush()
				spans = append(spans, Span{Kind: SpanCode, Text: rest[1 : 1+end]})
				i += end + 2
				continue
			}
		case strings.HasPrefix(rest, "**"):
			if end := strings.Index(rest[2:], "**"); end > 0 && tight(rest[2:2+end]) {
				flush()
				spans = append(spans, Span{Kind: SpanStrong, Text: rest[2 : 2+end]})
				i += end + 4
				continue
			}
		case rest[0] == '*':
			if end := strings.IndexByte(rest[1:], '*'); end > 0 && tight(rest[1:1+end]) {
				flush()
				spans = append(spans, Span{Kind: SpanEmphasis, Text: rest[1 : 1+end]})
				i += end + 2
				continue
			}
		case rest[0] == '[':
			if label, url, n, ok := markdownLink(rest); ok {
				flush()
				spans = append(spans, Span{Kind: SpanLink, Text: label, URL: url})
				i += n
				continue
			}
		case strings.HasPrefix(rest, "http://") || strings.HasPrefix(rest, "https://"):
			if atWordStart(text, i) {
				url := bareURL(rest)
				flush()
				spans = append(spans, Span{Kind: SpanLink, Text: url, URL: url})
				i += len(url)
				continue
			}
		}

		plain.WriteByte(text[i])
		i++
	}
	flush()
	return spans
}

// PlainText is the text content of spans with all markup removed.
func PlainText(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

func tight(inner string) bool {
	return inner != "" &&
		!strings.ContainsAny(inner[:1], " \t\n") &&
		!strings.ContainsAny(inner[len(inner)-1:], " \t\n") &&
		!strings.Contains(inner, "\n\n")
}

func markdownLink(s string) (label, url string, n int, ok bool) {
	closeLabel := strings.Index(s, "](")
	if closeLabel <= 1 || strings.ContainsAny(s[1:closeLabel], "[\n") {
		return "", "", 0, false
	}
	closeURL := strings.IndexByte(s[closeLabel+2:], ')')
	if closeURL <= 0 {
		return "", "", 0, false
	}
	url = s[closeLabel+2 : closeLabel+2+closeURL]
	if strings.ContainsAny(url, " \n") {
		return "", "", 0, false
	}
	return s[1:closeLabel], url, closeLabel + 3 + closeURL, true
}

func atWordStart(text string, i int) bool {
	if i == 0 {
		return true
	}
	switch text[i-1] {
	case ' ', '\t', '\n', '(', '<', '"', '\'':
		return true
	}
	return false
}

func bareURL(s string) string {
	end := strings.IndexAny(s, " \t\n<>\"")
	if end < 0 {
		end = len(s)
	}
	url := s[:end]
	return strings.TrimRight(url, ".,;:!?)")
}
