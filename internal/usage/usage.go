// Package usage compiles declarative usage strings into typed token sequences
// and binds raw argument text against them.
//
// A usage string is a whitespace-separated list of segments:
//
//	"view" "next" amount:wholeNumber
//	"kick" who:member ...reason
//
// A quoted segment is a literal keyword, name:type is a typed argument and
// ...name consumes the rest of the text verbatim.
package usage

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind identifies the variant of a Token.
type Kind int

const (
	Literal Kind = iota
	Named
	Rest
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Named:
		return "named"
	case Rest:
		return "rest"
	default:
		return "unknown"
	}
}

// Token is one position of a compiled usage.
// For literals Text holds the keyword; for named and rest tokens Name and Type are set.
type Token struct {
	Kind Kind
	Text string
	Name string
	Type *Type
}

// Usage is an immutable, compiled usage definition.
type Usage []Token

// SyntaxError is returned by Compile when a usage string is malformed.
type SyntaxError struct {
	Source  string
	Segment string
	Reason  string
}

func (e *SyntaxError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("usage %q: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("usage %q: segment %q: %s", e.Source, e.Segment, e.Reason)
}

// Compile parses source into a Usage, resolving type names against cat.
func Compile(source string, cat Catalogue) (Usage, error) {
	segments, err := split(source)
	if err != nil {
		return nil, err
	}

	u := make(Usage, 0, len(segments))
	seen := make(map[string]bool)
	sawRest := false

	for _, seg := range segments {
		fail := func(reason string) (Usage, error) {
			return nil, &SyntaxError{Source: source, Segment: seg.raw, Reason: reason}
		}

		if sawRest {
			if strings.HasPrefix(seg.raw, "...") {
				return fail("only one rest argument is allowed")
			}
			return fail("a rest argument must be the last segment")
		}

		if seg.quoted {
			if seg.text == "" {
				return fail("empty literal")
			}
			u = append(u, Token{Kind: Literal, Text: seg.text})
			continue
		}

		kind := Named
		body := seg.text
		if strings.HasPrefix(body, "...") {
			kind = Rest
			body = strings.TrimPrefix(body, "...")
		}

		name, typeName, hasType := strings.Cut(body, ":")
		if !validName(name) {
			return fail("invalid argument name")
		}
		if seen[name] {
			return fail("duplicate argument name")
		}
		seen[name] = true

		var t *Type
		switch {
		case hasType:
			t = cat[typeName]
			if t == nil {
				return fail(fmt.Sprintf("unknown type %q", typeName))
			}
		case kind == Rest:
			t = Text
		default:
			return fail(`expected "literal", name:type or ...name`)
		}

		if kind == Rest {
			sawRest = true
		}
		u = append(u, Token{Kind: kind, Name: name, Type: t})
	}

	return u, nil
}

// CompileAll compiles every source in order and stops at the first error.
func CompileAll(sources []string, cat Catalogue) ([]Usage, error) {
	out := make([]Usage, 0, len(sources))
	for _, src := range sources {
		u, err := Compile(src, cat)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// HasRest reports whether the usage ends with a rest token.
func (u Usage) HasRest() bool {
	return len(u) > 0 && u[len(u)-1].Kind == Rest
}

type segment struct {
	raw    string
	text   string
	quoted bool
}

// split breaks source on whitespace outside of double quotes.
func split(source string) ([]segment, error) {
	var (
		segs []segment
		i    int
	)
	for i < len(source) {
		r := rune(source[i])
		if unicode.IsSpace(r) {
			i++
			continue
		}

		if source[i] == '"' {
			end := strings.IndexByte(source[i+1:], '"')
			if end < 0 {
				return nil, &SyntaxError{Source: source, Segment: source[i:], Reason: "unterminated quote"}
			}
			stop := i + 1 + end + 1
			if stop < len(source) && !unicode.IsSpace(rune(source[stop])) {
				return nil, &SyntaxError{Source: source, Segment: source[i:], Reason: "literal must be followed by whitespace"}
			}
			segs = append(segs, segment{raw: source[i:stop], text: source[i+1 : stop-1], quoted: true})
			i = stop
			continue
		}

		start := i
		for i < len(source) && !unicode.IsSpace(rune(source[i])) {
			if source[i] == '"' {
				return nil, &SyntaxError{Source: source, Segment: source[start:], Reason: "unexpected quote"}
			}
			i++
		}
		segs = append(segs, segment{raw: source[start:i], text: source[start:i]})
	}
	return segs, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
