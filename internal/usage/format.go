package usage

import (
	"fmt"
	"strings"
)

// Format renders a usage as help text:
//
//	`!onboard kick <who> <reason>`
//	    where who is a member, reason is some text
func Format(prefix, name string, u Usage) string {
	var (
		parts        []string
		explanations []string
	)
	for _, tok := range u {
		switch tok.Kind {
		case Literal:
			parts = append(parts, tok.Text)
		default:
			parts = append(parts, "<"+tok.Name+">")
			explanations = append(explanations, fmt.Sprintf("%s is %s", tok.Name, tok.Type.PrettyName))
		}
	}

	var b strings.Builder
	b.WriteString("`" + prefix + name)
	if len(parts) > 0 {
		b.WriteString(" " + strings.Join(parts, " "))
	}
	b.WriteString("`")
	if len(explanations) > 0 {
		b.WriteString("\n    where " + strings.Join(explanations, ", "))
	}
	return b.String()
}
