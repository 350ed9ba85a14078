// Package normalize reduces noisy track and album titles to stable grouping
// keys, so that "Song (2011 Remaster)" and "Song" chart as one entry.
package normalize

import (
	"regexp"
	"strings"
)

// Qualifier vocabulary matched as whole words inside bracketed, parenthesized
// or dash-delimited clauses. An optional trailing period covers "feat." and
// friends.
var keywords = []string{
	"remaster", "remastered", "re-master", "re-mastered", "mix", "remix",
	"dub", "dubs", "demo", "deluxe", "instrumental", "extended", "version",
	"radio edit", "live", "edit", "anniversary", "edition", "single",
	"explicit", "clean", "original", "acoustic", "unplugged", "stereo",
	"mono", "feat", "ft",
}

var (
	clausePattern = regexp.MustCompile(
		`(?i)\s*[\(\[\-](?:[^\(\)\[\]\-]*\b(?:` + strings.Join(keywords, "|") + `)\b\.?[^\(\)\[\]\-]*)[\)\]\-]?\s*`)
	openBracketPattern = regexp.MustCompile(`\s*[\(\[].*$`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

// Clean strips qualifier clauses from a title. It is idempotent, and it never
// returns an empty string for non-empty input: if stripping would consume the
// whole title, the original is returned instead.
func Clean(title string) string {
	cleaned := title
	// A single substitution pass is not a fixpoint: removing one clause can
	// make the next one adjacent to its delimiter. Loop until stable; each
	// pass removes at least one rune, so this is bounded by the input length.
	for {
		next := clausePattern.ReplaceAllString(cleaned, " ")
		if next == cleaned {
			break
		}
		cleaned = next
	}

	// A trailing segment that opens a bracket but never closes one is a
	// truncated qualifier; drop it rather than leaving a dangling delimiter.
	cleaned = openBracketPattern.ReplaceAllStringFunc(cleaned, func(m string) string {
		if !strings.ContainsAny(m, ")]") {
			return ""
		}
		return m
	})

	cleaned = strings.TrimSpace(spacePattern.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return title
	}
	return cleaned
}

// Identity is the debounce and dedup key for a play: the normalized,
// lowercased artist|title pair. Cosmetic title variants collapse to the same
// key.
func Identity(artist, title string) string {
	return strings.ToLower(strings.TrimSpace(artist)) + "|" + strings.ToLower(Clean(title))
}
