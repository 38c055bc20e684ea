package chat

import (
	"iter"
	"time"
	"unicode"
	"unicode/utf8"
)

// Pacing sets how long each word waits before it appears.
type Pacing struct {
	Base    time.Duration
	PerRune time.Duration
	Max     time.Duration
}

// DefaultPacing approximates a model typing a reply.
var DefaultPacing = Pacing{
	Base:    30 * time.Millisecond,
	PerRune: 12 * time.Millisecond,
	Max:     200 * time.Millisecond,
}

// Delay grows with word length and is capped at Max when Max is set.
func (p Pacing) Delay(word string) time.Duration {
	d := p.Base + time.Duration(utf8.RuneCountInString(word))*p.PerRune
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// Stage is one step of a reveal. Intermediate stages carry a growing prefix
// of the plain text; the final stage carries the formatted spans as well.
type Stage struct {
	Text  string
	Delay time.Duration
	Spans []Span
	Final bool
}

// Stages lazily yields the reveal of text, one stage per word followed by
// the final formatted stage. Each call starts from the beginning.
func Stages(text string, pacing Pacing) iter.Seq[Stage] {
	return func(yield func(Stage) bool) {
		spans := Format(text)
		plain := PlainText(spans)

		i := 0
		for i < len(plain) {
			start := i
			for start < len(plain) {
				r, size := utf8.DecodeRuneInString(plain[start:])
				if !unicode.IsSpace(r) {
					break
				}
				start += size
			}
			end := start
			for end < len(plain) {
				r, size := utf8.DecodeRuneInString(plain[end:])
				if unicode.IsSpace(r) {
					break
				}
				end += size
			}
			if end == start {
				break
			}
			if !yield(Stage{Text: plain[:end], Delay: pacing.Delay(plain[start:end])}) {
				return
			}
			i = end
		}

		yield(Stage{Text: plain, Spans: spans, Final: true})
	}
}
