package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/xrsl/reachout/pkg/recipient"
	"github.com/xrsl/reachout/pkg/utils"
)

//go:embed defaults/outreach.md
var Default string

const DefaultPath = ".reachout/prompt.md"

// Data is what the template is rendered with.
type Data struct {
	Recipient    recipient.Recipient
	CVHighlights string
	SenderName   string
}

// Init writes the default template to path unless a file already exists.
// It reports whether a file was created.
func Init(path string) (bool, error) {
	if path == "" {
		path = DefaultPath
	}
	if utils.FileExists(path) {
		return false, nil
	}
	if err := utils.WriteFile(path, Default); err != nil {
		return false, err
	}
	return true, nil
}

// Reset overwrites path with the default template.
func Reset(path string) error {
	if path == "" {
		path = DefaultPath
	}
	return utils.WriteFile(path, Default)
}

// Load parses the template at path, falling back to the embedded default
// when the file does not exist.
func Load(path string) (*template.Template, error) {
	text := Default
	name := "default"
	if path != "" {
		content, err := utils.ReadFile(path)
		switch {
		case err == nil:
			text, name = content, filepath.Base(path)
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read prompt template: %w", err)
		}
	}
	return Parse(name, text)
}

// Parse compiles template text. Missing fields are errors so typos in a
// custom template fail before anything is sent.
func Parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return tmpl, nil
}
