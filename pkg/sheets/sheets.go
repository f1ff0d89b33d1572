// Package sheets reads outreach recipients from a Google Sheet using a
// service account.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/xrsl/reachout/pkg/recipient"
)

const DefaultRange = "Sheet1!A2:D"

// Column names accepted in a column layout.
const (
	ColName           = "name"
	ColResearchDomain = "research_domain"
	ColEmail          = "email"
	ColOrganization   = "organization"
)

// DefaultColumns matches the sheet layout: name, research domain, email and
// an optional university.
var DefaultColumns = []string{ColName, ColResearchDomain, ColEmail, ColOrganization}

// minCells is the number of filled cells a row needs to be considered.
const minCells = 3

// Config describes where the recipient list lives.
type Config struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
	Columns         []string
	FirstRow        int // Sheet row number of the first value row, for logs
}

// Source fetches recipients from the Sheets API.
type Source struct {
	values *gsheets.SpreadsheetsValuesService
	config Config
	layout layout
}

// New builds a read-only Sheets client from the service account file.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is required")
	}
	if cfg.Range == "" {
		cfg.Range = DefaultRange
	}
	if cfg.FirstRow == 0 {
		cfg.FirstRow = firstRowOf(cfg.Range)
	}
	lay, err := parseLayout(cfg.Columns)
	if err != nil {
		return nil, err
	}

	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(gsheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Source{
		values: gsheets.NewSpreadsheetsValuesService(svc),
		config: cfg,
		layout: lay,
	}, nil
}

// Recipients reads the configured range.
func (s *Source) Recipients(ctx context.Context) ([]recipient.Recipient, error) {
	resp, err := s.values.Get(s.config.SpreadsheetID, s.config.Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s range %s: %w", s.config.SpreadsheetID, s.config.Range, err)
	}
	return s.layout.parse(resp.Values, s.config.FirstRow), nil
}

// ParseRows converts raw sheet values using a column layout.
func ParseRows(values [][]interface{}, columns []string, firstRow int) ([]recipient.Recipient, error) {
	lay, err := parseLayout(columns)
	if err != nil {
		return nil, err
	}
	return lay.parse(values, firstRow), nil
}

// layout maps each recipient field to a column index, -1 when absent.
type layout struct {
	name, domain, email, org int
}

func parseLayout(columns []string) (layout, error) {
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	lay := layout{name: -1, domain: -1, email: -1, org: -1}
	for i, c := range columns {
		var slot *int
		switch strings.ToLower(strings.TrimSpace(c)) {
		case ColName:
			slot = &lay.name
		case ColResearchDomain:
			slot = &lay.domain
		case ColEmail:
			slot = &lay.email
		case ColOrganization, "university":
			slot = &lay.org
		case "", "-", "ignore":
			continue
		default:
			return layout{}, fmt.Errorf("unknown sheet column %q", c)
		}
		if *slot != -1 {
			return layout{}, fmt.Errorf("sheet column %q listed twice", c)
		}
		*slot = i
	}
	if lay.email == -1 {
		return layout{}, fmt.Errorf("sheet layout has no %q column", ColEmail)
	}
	return lay, nil
}

func (l layout) parse(values [][]interface{}, firstRow int) []recipient.Recipient {
	var out []recipient.Recipient
	for i, row := range values {
		if len(row) < minCells {
			continue
		}
		r := recipient.Recipient{
			Name:           cell(row, l.name),
			ResearchDomain: cell(row, l.domain),
			Email:          cell(row, l.email),
			Organization:   cell(row, l.org),
			Row:            firstRow + i,
		}
		if r.Organization == "" {
			r.Organization = recipient.DefaultOrganization
		}
		out = append(out, r)
	}
	return out
}

func cell(row []interface{}, idx int) string {
	if idx < 0 || idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

// firstRowOf extracts the starting row from an A1 range like "Sheet1!A2:D".
func firstRowOf(a1 string) int {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	start, _, _ := strings.Cut(a1, ":")
	digits := strings.TrimLeft(start, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	n := 0
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 1
		}
		n = n*10 + int(c-'0')
	}
	if n == 0 {
		return 1
	}
	return n
}
