package identification

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// labelPatterns strip release noise from disc labels. Order matters:
// compound markers run before the single tokens they contain, and the
// trailing markers anchor on $ so the space left by an earlier replacement
// stops later ones from eating real words. Every pattern is word-bounded;
// letters inside words always survive.
var labelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bmain title\b`),
	regexp.MustCompile(`\bus des\b`),
	regexp.MustCompile(`\buk des\b`),
	regexp.MustCompile(`\b(?:special|collectors|limited|deluxe|ultimate|platinum|anniversary) edition\b`),
	regexp.MustCompile(`\b\d+th anniversary\b`),
	regexp.MustCompile(`\bdirector'?s? cut\b`),
	regexp.MustCompile(`\bblu ?ray\b`),
	regexp.MustCompile(`\brated (?:nc ?17|pg ?13|pg|g|r)\b`),
	regexp.MustCompile(`\bregion ?[1-6]\b`),
	regexp.MustCompile(`\bversion ?\d+\b`),
	regexp.MustCompile(`\bdisc ?\d+\b`),
	regexp.MustCompile(`\bdvd ?\d+\b`),
	regexp.MustCompile(`\bwidescreen\b`),
	regexp.MustCompile(`\bfullscreen\b`),
	regexp.MustCompile(`\banamorphic\b`),
	regexp.MustCompile(`\btheatrical\b`),
	regexp.MustCompile(`\bremastered\b`),
	regexp.MustCompile(`\brestored\b`),
	regexp.MustCompile(`\bextended\b`),
	regexp.MustCompile(`\bunrated\b`),
	regexp.MustCompile(`\bfeature\b`),
	regexp.MustCompile(`\bdeluxe\b`),
	regexp.MustCompile(`\bultimate\b`),
	regexp.MustCompile(`\bmovie\b`),
	regexp.MustCompile(`\b16x9\b`),
	regexp.MustCompile(`\b4x3\b`),
	regexp.MustCompile(`\bntsc\b`),
	regexp.MustCompile(`\bpal\b`),
	regexp.MustCompile(`\bdvd\b`),
	regexp.MustCompile(`\buhd\b`),
	regexp.MustCompile(`\bws\b`),
	regexp.MustCompile(`\bfs\b`),
	regexp.MustCompile(`\bps\b`),
	regexp.MustCompile(`\bse\b`),
	regexp.MustCompile(`\bdc\b`),
	regexp.MustCompile(`\bce\b`),
	regexp.MustCompile(`\bbd\b`),
	regexp.MustCompile(`\bhd\b`),
	regexp.MustCompile(`\b4k\b`),
	regexp.MustCompile(`\bdes\b`),
	regexp.MustCompile(`\br[1-6]\b`),
	regexp.MustCompile(`\bd\d+$`),
	regexp.MustCompile(`\bv\d+$`),
	regexp.MustCompile(` [a-z]\d+$`),
}

// CleanLabel reduces a raw disc label to a searchable title: lowercase,
// underscores to spaces, release noise stripped, whitespace collapsed.
func CleanLabel(label string) string {
	cleaned := strings.ToLower(label)
	cleaned = strings.ReplaceAll(cleaned, "_", " ")
	for _, pattern := range labelPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, " ")
	}
	return strings.Join(strings.Fields(cleaned), " ")
}

// DisplayGuess turns a raw disc label into a presentable title for review
// screens and UNKNOWN identification results.
func DisplayGuess(label string) string {
	cleaned := CleanLabel(label)
	if cleaned == "" {
		return "Unknown Disc"
	}
	return cases.Title(language.Und).String(cleaned)
}
