package usage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Type is an argument type: a name used in usage strings, a human readable
// description for help text and a parser for raw tokens.
type Type struct {
	Name       string
	PrettyName string
	// AllowEmpty permits an empty value when the type is used for a rest argument.
	AllowEmpty bool
	Parse      func(ctx context.Context, raw string, env Env) (any, error)
}

// MemberResolver looks up guild members for the member type.
type MemberResolver interface {
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
}

// Env is what argument parsers may consult while binding.
type Env struct {
	GuildID string
	Members MemberResolver
}

// Catalogue maps type names to types.
type Catalogue map[string]*Type

// ErrNoMember is returned by the member type when no member resolver is available.
var ErrNoMember = errors.New("no member resolver")

var (
	snowflakePattern = regexp.MustCompile(`^\d{15,21}$`)
	userMention      = regexp.MustCompile(`^<@!?(\d+)>$`)
	channelMention   = regexp.MustCompile(`^<#(\d+)>$`)
	roleMention      = regexp.MustCompile(`^<@&(\d+)>$`)
	digitsOnly       = regexp.MustCompile(`^\d+$`)
)

var (
	WholeNumber = &Type{
		Name:       "wholeNumber",
		PrettyName: "a whole number",
		Parse: func(_ context.Context, raw string, _ Env) (any, error) {
			if !digitsOnly.MatchString(raw) {
				return nil, fmt.Errorf("%q is not a whole number", raw)
			}
			return strconv.Atoi(raw)
		},
	}

	Member = &Type{
		Name:       "member",
		PrettyName: "a member",
		Parse: func(ctx context.Context, raw string, env Env) (any, error) {
			id, ok := mentionID(raw, userMention)
			if !ok {
				return nil, fmt.Errorf("%q is not a member mention", raw)
			}
			if env.Members == nil {
				return nil, ErrNoMember
			}
			m, err := env.Members.Member(ctx, env.GuildID, id)
			if err != nil {
				return nil, err
			}
			if m == nil {
				return nil, fmt.Errorf("member %s not found", id)
			}
			return m, nil
		},
	}

	Channel = &Type{
		Name:       "channel",
		PrettyName: "a channel",
		Parse: func(_ context.Context, raw string, _ Env) (any, error) {
			if id, ok := mentionID(raw, channelMention); ok {
				return id, nil
			}
			return nil, fmt.Errorf("%q is not a channel", raw)
		},
	}

	Role = &Type{
		Name:       "role",
		PrettyName: "a role",
		Parse: func(_ context.Context, raw string, _ Env) (any, error) {
			if id, ok := mentionID(raw, roleMention); ok {
				return id, nil
			}
			return nil, fmt.Errorf("%q is not a role", raw)
		},
	}

	Word = &Type{
		Name:       "word",
		PrettyName: "a word",
		Parse: func(_ context.Context, raw string, _ Env) (any, error) {
			return raw, nil
		},
	}

	Text = &Type{
		Name:       "text",
		PrettyName: "some text",
		AllowEmpty: true,
		Parse: func(_ context.Context, raw string, _ Env) (any, error) {
			return raw, nil
		},
	}
)

// DefaultCatalogue returns a fresh catalogue holding the built-in types.
func DefaultCatalogue() Catalogue {
	cat := Catalogue{}
	for _, t := range []*Type{WholeNumber, Member, Channel, Role, Word, Text} {
		cat[t.Name] = t
	}
	return cat
}

// mentionID accepts either a mention matching pattern or a bare snowflake.
func mentionID(raw string, pattern *regexp.Regexp) (string, bool) {
	if m := pattern.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if snowflakePattern.MatchString(raw) {
		return raw, true
	}
	return "", false
}
