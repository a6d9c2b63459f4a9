// Package captions turns SRT subtitle tracks into plain transcript text.
package captions

import (
	"regexp"
	"strings"
)

var (
	timestampLine = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}[,.]\d{3}\s+-->\s+\d{2}:\d{2}:\d{2}[,.]\d{3}`)
	indexLine     = regexp.MustCompile(`^\d+$`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// PlainText extracts the spoken text from an SRT track: cue index numbers and
// timestamp lines are dropped, the remaining cue text is joined with single
// spaces. Blank lines and mixed CRLF/LF endings are tolerated. Running the
// extractor over its own output returns the same text unchanged.
func PlainText(srt string) string {
	var words []string
	for _, line := range strings.Split(strings.ReplaceAll(srt, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || indexLine.MatchString(line) || timestampLine.MatchString(line) {
			continue
		}
		words = append(words, line)
	}
	return spaceRun.ReplaceAllString(strings.Join(words, " "), " ")
}
