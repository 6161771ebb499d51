package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	_ "github.com/keshon/airlock/internal/command/help"
	_ "github.com/keshon/airlock/internal/command/history"
	_ "github.com/keshon/airlock/internal/command/onboard"
	_ "github.com/keshon/airlock/internal/command/vettinglimit"

	"github.com/keshon/airlock/internal/plugin"
	"github.com/keshon/airlock/internal/usage"
)

const prefix = "!"

func main() {
	sources, err := plugin.Select(true, nil)
	if err != nil {
		panic(err)
	}

	var buf bytes.Buffer
	for _, src := range sources {
		p := src.Plugin
		fmt.Fprintf(&buf, "### `%s%s`\n\n", prefix, p.Name())
		if d, ok := p.(plugin.Describer); ok {
			fmt.Fprintf(&buf, "%s\n\n%s\n\n", d.Synopsis(), d.Description())
		}

		up, ok := p.(plugin.UsageProvider)
		if !ok {
			continue
		}
		usages, err := usage.CompileAll(up.Usage(), usage.DefaultCatalogue())
		if err != nil {
			panic(fmt.Errorf("plugin %s: %w", p.Name(), err))
		}
		for _, u := range usages {
			lines := strings.Split(usage.Format(prefix, p.Name(), u), "\n")
			fmt.Fprintf(&buf, "* %s\n", lines[0])
			for _, l := range lines[1:] {
				fmt.Fprintf(&buf, "  %s\n", strings.TrimSpace(l))
			}
		}
		buf.WriteString("\n")
	}

	tmplData, err := os.ReadFile("README.md.tmpl")
	if err != nil {
		panic(err)
	}

	tmpl, err := template.New("readme").Parse(string(tmplData))
	if err != nil {
		panic(err)
	}

	data := map[string]any{
		"CommandSections": buf.String(),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		panic(err)
	}

	if err := os.WriteFile("README.md", out.Bytes(), 0644); err != nil {
		panic(err)
	}
}
