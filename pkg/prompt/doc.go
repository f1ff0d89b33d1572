// Package prompt manages the template used to draft outreach emails.
//
// # Embedded Default
//
// The default template is embedded at compile time from defaults/outreach.md.
//
// # Runtime Customization
//
// Users can customize the template by editing .reachout/prompt.md, which
// 'reachout init' creates from the embedded default. The template is a Go
// text/template receiving:
//   - .Recipient     name, research domain, organization and email
//   - .CVHighlights  the first few hundred characters of the CV
//   - .SenderName    the configured sender display name
//
// Run 'reachout init --reset' to restore the embedded default.
package prompt
