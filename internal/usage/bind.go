package usage

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// Args is the result of a successful bind: typed values keyed by argument
// name and the literals that matched.
type Args struct {
	index    int
	values   map[string]any
	literals map[string]bool
}

// Usage returns the position of the usage row that matched.
func (a Args) Usage() int { return a.index }

// Has reports whether the literal keyword was part of the matched row.
func (a Args) Has(literal string) bool { return a.literals[literal] }

// Value returns the bound value for name.
func (a Args) Value(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// String returns the value for name as a string, or "" if absent.
func (a Args) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

// Int returns the value for name as an int, or 0 if absent.
func (a Args) Int(name string) int {
	n, _ := a.values[name].(int)
	return n
}

// Member returns the value for name as a guild member, or nil if absent.
func (a Args) Member(name string) *discordgo.Member {
	m, _ := a.values[name].(*discordgo.Member)
	return m
}

// Bind tries each usage in order and returns the arguments of the first one
// that fully matches raw. The boolean is false when no usage matches.
func Bind(ctx context.Context, raw string, usages []Usage, env Env) (Args, bool) {
	for i, u := range usages {
		if args, ok := bindOne(ctx, raw, u, env); ok {
			args.index = i
			return args, true
		}
	}
	return Args{}, false
}

func bindOne(ctx context.Context, raw string, u Usage, env Env) (Args, bool) {
	args := Args{
		values:   make(map[string]any),
		literals: make(map[string]bool),
	}
	rest := raw

	for _, tok := range u {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)

		switch tok.Kind {
		case Literal:
			if !hasWord(rest, tok.Text) {
				return Args{}, false
			}
			args.literals[tok.Text] = true
			rest = rest[len(tok.Text):]

		case Named:
			word, remainder := nextWord(rest)
			if word == "" {
				return Args{}, false
			}
			v, err := tok.Type.Parse(ctx, word, env)
			if err != nil {
				return Args{}, false
			}
			args.values[tok.Name] = v
			rest = remainder

		case Rest:
			if rest == "" && !tok.Type.AllowEmpty {
				return Args{}, false
			}
			v, err := tok.Type.Parse(ctx, rest, env)
			if err != nil {
				return Args{}, false
			}
			args.values[tok.Name] = v
			rest = ""
		}
	}

	if strings.TrimSpace(rest) != "" {
		return Args{}, false
	}
	return args, true
}

// hasWord reports whether s starts with word followed by whitespace or the end.
func hasWord(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	if len(s) == len(word) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[len(word):])
	return unicode.IsSpace(r)
}

func nextWord(s string) (word, rest string) {
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}
