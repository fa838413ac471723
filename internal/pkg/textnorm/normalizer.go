package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// replacement is one compiled substitution rule
type replacement struct {
	re   *regexp.Regexp
	repl string
}

var fillerRe = regexp.MustCompile(`(?i)\b(?:um|uh|ah|like|you know|sort of)\b`)

// contraction table, expanded to formal form.
// Possessive 's is left alone - only the listed forms are touched
var contractionTable = [][2]string{
	{"can't", "cannot"},
	{"won't", "will not"},
	{"don't", "do not"},
	{"doesn't", "does not"},
	{"didn't", "did not"},
	{"isn't", "is not"},
	{"aren't", "are not"},
	{"wasn't", "was not"},
	{"weren't", "were not"},
	{"couldn't", "could not"},
	{"shouldn't", "should not"},
	{"wouldn't", "would not"},
	{"haven't", "have not"},
	{"hasn't", "has not"},
	{"hadn't", "had not"},
	{"it's", "it is"},
	{"that's", "that is"},
	{"there's", "there is"},
	{"what's", "what is"},
	{"let's", "let us"},
	{"i'm", "i am"},
	{"i'll", "i will"},
	{"i've", "i have"},
	{"i'd", "i would"},
	{"you're", "you are"},
	{"you'll", "you will"},
	{"you've", "you have"},
	{"we're", "we are"},
	{"we'll", "we will"},
	{"we've", "we have"},
	{"they're", "they are"},
	{"they'll", "they will"},
	{"she'll", "she will"},
	{"he'll", "he will"},
}

// spoken formatting command table, longest phrases first.
// Newline commands swallow surrounding spaces so paragraphs start clean
var commandTable = [][2]string{
	{"new paragraph", "\n\n"},
	{"new line", "\n"},
	{"full stop", "."},
	{"exclamation mark", "!"},
	{"exclamation point", "!"},
	{"question mark", "?"},
	{"open quote", `"`},
	{"close quote", `"`},
	{"open parenthesis", "("},
	{"close parenthesis", ")"},
	{"period", "."},
	{"comma", ","},
	{"colon", ":"},
	{"semicolon", ";"},
	{"hyphen", "-"},
}

var (
	contractions []replacement
	commands     []replacement

	spaceBeforePunct = regexp.MustCompile(`[ \t]+([.,:;?!])`)
	punctThenLetter  = regexp.MustCompile(`([.,:;?!])(\p{L})`)
	spaceRuns        = regexp.MustCompile(`[ \t]+`)
)

func init() {
	for _, c := range contractionTable {
		contractions = append(contractions, replacement{
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(c[0]) + `\b`),
			repl: c[1]})
	}
	for _, c := range commandTable {
		pattern := `(?i)\b` + regexp.QuoteMeta(c[0]) + `\b`
		if strings.HasPrefix(c[1], "\n") {
			pattern = `[ \t]*` + pattern + `[ \t]*`
		}
		commands = append(commands, replacement{re: regexp.MustCompile(pattern), repl: c[1]})
	}
}

// Normalize maps raw dictated or transcribed text to cleaned text.
// Pure and deterministic, rule order is fixed - later rules operate
// on the output of earlier ones. Idempotent on its own output
func Normalize(text string) string {
	if text == "" {
		return text
	}
	res := fillerRe.ReplaceAllString(text, " ")
	for _, c := range contractions {
		res = c.re.ReplaceAllStringFunc(res, func(m string) string {
			return matchCase(m, c.repl)
		})
	}
	for _, c := range commands {
		res = c.re.ReplaceAllString(res, c.repl)
	}
	res = spaceBeforePunct.ReplaceAllString(res, "$1")
	res = punctThenLetter.ReplaceAllString(res, "$1 $2")
	res = spaceRuns.ReplaceAllString(res, " ")
	return strings.TrimSpace(res)
}

// matchCase carries the capitalization of the first letter of the match
// over to the replacement
func matchCase(match, repl string) string {
	r, _ := utf8.DecodeRuneInString(match)
	if !unicode.IsUpper(r) {
		return repl
	}
	fr, size := utf8.DecodeRuneInString(repl)
	return string(unicode.ToUpper(fr)) + repl[size:]
}
