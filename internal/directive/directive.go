// Package directive finds [SAVE: ...] and [FORGET: ...] instructions in model
// output and removes them from the text shown to the user.
package directive

import (
	"regexp"
	"strings"
)

// Kind is the directive verb.
type Kind int

const (
	Save Kind = iota + 1
	Forget
)

func (k Kind) String() string {
	switch k {
	case Save:
		return "SAVE"
	case Forget:
		return "FORGET"
	default:
		return "UNKNOWN"
	}
}

var keywords = map[string]Kind{
	"save":   Save,
	"forget": Forget,
}

// Action is one well-formed directive. Start and End are byte offsets of the
// bracketed span in the scanned text.
type Action struct {
	Kind  Kind
	Arg   string
	Start int
	End   int
}

// Raw returns the directive exactly as it appeared in text.
func (a Action) Raw(text string) string {
	return text[a.Start:a.End]
}

// Parse scans text left to right and returns every well-formed directive.
// A directive is "[" KEYWORD ":" ARG "]" where the keyword is case-insensitive,
// blanks may surround the keyword and colon, and ARG is non-blank, stays on
// one line and may hold balanced brackets. Anything else is ordinary text.
func Parse(text string) []Action {
	var actions []Action
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		if a, ok := scanAt(text, i); ok {
			actions = append(actions, a)
			i = a.End - 1
		}
	}
	return actions
}

// Filter returns the actions of the given kind, preserving order.
func Filter(actions []Action, kind Kind) []Action {
	var out []Action
	for _, a := range actions {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func scanAt(text string, start int) (Action, bool) {
	i := skipBlanks(text, start+1)

	kwStart := i
	for i < len(text) && isLetter(text[i]) {
		i++
	}
	kind, ok := keywords[strings.ToLower(text[kwStart:i])]
	if !ok {
		return Action{}, false
	}

	i = skipBlanks(text, i)
	if i >= len(text) || text[i] != ':' {
		return Action{}, false
	}
	i++

	argStart := i
	depth := 0
	for ; i < len(text); i++ {
		c := text[i]
		if c == '\n' {
			return Action{}, false
		}
		if c == '[' {
			// A directive nested in the argument is matched on its own first;
			// the enclosing one becomes well-formed once it is stripped.
			if _, nested := scanAt(text, i); nested {
				return Action{}, false
			}
			depth++
			continue
		}
		if c == ']' {
			if depth == 0 {
				break
			}
			depth--
		}
	}
	if i >= len(text) {
		return Action{}, false
	}

	arg := strings.TrimSpace(text[argStart:i])
	if arg == "" {
		return Action{}, false
	}
	return Action{Kind: kind, Arg: arg, Start: start, End: i + 1}, true
}

func skipBlanks(text string, i int) int {
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Strip removes the given actions from text, which must be the text they were
// parsed from. Blanks left at each cut are collapsed and the result is trimmed.
func Strip(text string, actions []Action) string {
	result := ""
	prev := 0
	for _, a := range actions {
		if a.Start < prev || a.End > len(text) {
			continue
		}
		result = join(result, text[prev:a.Start])
		prev = a.End
	}
	result = join(result, text[prev:])
	return strings.TrimSpace(result)
}

// join glues two pieces left over from a cut, keeping at most one space
// between words and none before closing punctuation.
func join(left, right string) string {
	l := strings.TrimRight(left, " \t")
	r := strings.TrimLeft(right, " \t")
	switch {
	case l == "":
		return r
	case r == "":
		return l
	case strings.HasSuffix(l, "\n") || strings.HasPrefix(r, "\n"):
		return l + r
	case strings.ContainsRune(".,!?;:)", rune(r[0])):
		return l + r
	default:
		return l + " " + r
	}
}

var markup = regexp.MustCompile(`<[^>]+>`)

// StripMarkup removes anything that looks like an HTML or XML tag.
func StripMarkup(text string) string {
	return markup.ReplaceAllString(text, "")
}
