// Package recipient defines the outreach target read from the spreadsheet.
package recipient

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultOrganization fills the organization column when the sheet omits it.
const DefaultOrganization = "Unknown"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Recipient is one row of the target sheet.
type Recipient struct {
	Name           string `json:"name" validate:"required"`
	ResearchDomain string `json:"research_domain"`
	Email          string `json:"email" validate:"required,email"`
	Organization   string `json:"organization"`
	Row            int    `json:"row"` // 1-based sheet row, 0 if unknown
}

// Key identifies a recipient across runs.
func (r Recipient) Key() string {
	return Key(r.Email)
}

// Key normalizes an email address into a status key.
func Key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate reports why a recipient cannot be mailed.
func (r Recipient) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("missing %s", strings.ToLower(fe.Field()))
		case "email":
			return fmt.Errorf("invalid email address %q", r.Email)
		}
	}
	return err
}

func (r Recipient) String() string {
	if r.Name == "" {
		return r.Email
	}
	return fmt.Sprintf("%s <%s>", r.Name, r.Email)
}
