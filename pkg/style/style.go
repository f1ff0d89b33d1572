// Package style provides terminal styling for the reachout CLI, with
// Typer-like help output.
package style

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ANSI color codes
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red     = "\033[0;31m"
	Green   = "\033[0;32m"
	Yellow  = "\033[1;33m"
	Blue    = "\033[0;34m"
	Magenta = "\033[0;35m"
	Cyan    = "\033[0;36m"
	Gray    = "\033[90m"
)

// EnvAnnotation is the cobra annotation listing environment variables a
// command reads, shown in its help.
const EnvAnnotation = "env"

// NoColor disables colors (REACHOUT_NO_COLOR, NO_COLOR or non-TTY stdout)
var NoColor = false

func init() {
	if os.Getenv("REACHOUT_NO_COLOR") != "" || os.Getenv("NO_COLOR") != "" {
		NoColor = true
	}
	if fi, err := os.Stdout.Stat(); err == nil && fi.Mode()&os.ModeCharDevice == 0 {
		NoColor = true
	}
}

// C wraps text with color, respecting NoColor
func C(color, text string) string {
	if NoColor {
		return text
	}
	return color + text + Reset
}

// B makes text bold
func B(text string) string {
	return C(Bold, text)
}

// Success formats a success label
func Success(label string) string {
	return C(Green, label+":") + " "
}

// Warning formats a warning label
func Warning(label string) string {
	return C(Yellow, label+":") + " "
}

// Failure formats an error label
func Failure(label string) string {
	return C(Red, label+":") + " "
}

// State colors a delivery state name.
func State(state string) string {
	switch state {
	case "sent":
		return C(Green, state)
	case "failed":
		return C(Red, state)
	case "skipped":
		return C(Yellow, state)
	default:
		return state
	}
}

// SetupHelp installs the help and usage templates on cmd and its children.
func SetupHelp(cmd *cobra.Command) {
	cobra.AddTemplateFunc("heading", func(s string) string { return C(Bold+Magenta, s) })
	cobra.AddTemplateFunc("command", func(s string) string { return C(Cyan, s) })
	cobra.AddTemplateFunc("rpadStyled", rpadStyled)
	cobra.AddTemplateFunc("envVars", envVars)

	cmd.SetUsageTemplate(usageTemplate)
	cmd.SetHelpTemplate(helpTemplate)
}

// rpadStyled pads by the raw length so escape codes do not skew columns.
func rpadStyled(s string, padding int) string {
	styled := C(Cyan, s)
	if n := padding - len(s); n > 0 {
		return styled + strings.Repeat(" ", n)
	}
	return styled
}

func envVars(cmd *cobra.Command) string {
	raw := cmd.Annotations[EnvAnnotation]
	if raw == "" {
		return ""
	}
	var sb strings.Builder
	for _, name := range strings.Fields(raw) {
		sb.WriteString("  " + C(Gray, "$"+name) + "\n")
	}
	return sb.String()
}

const commandList = `{{ heading "Commands:" }}{{range .Commands}}{{if .IsAvailableCommand}}
  {{rpadStyled .Name .NamePadding }}  {{.Short}}{{end}}{{end}}
`

const usageTemplate = `{{ heading "Usage:" }}
  {{ command .UseLine }}{{if .HasAvailableSubCommands}} [command]{{end}}
{{if .HasAvailableSubCommands}}
` + commandList + `
Run "{{.CommandPath}} [command] --help" for details.{{end}}
`

const helpTemplate = `{{with (or .Long .Short)}}{{.}}

{{end}}{{ heading "Usage:" }}
  {{ command .UseLine }}{{if .HasAvailableSubCommands}} [command]{{end}}
{{if .HasAvailableSubCommands}}
` + commandList + `{{end}}{{if .HasAvailableLocalFlags}}
{{ heading "Options:" }}
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if .HasAvailableInheritedFlags}}
{{ heading "Global Options:" }}
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{with envVars .}}
{{ heading "Environment:" }}
{{.}}{{end}}{{if .HasAvailableSubCommands}}
Run "{{.CommandPath}} [command] --help" for details.
{{end}}`
