// Package embedding turns player identities into vectors and keeps the stored vectors current
package embedding

import (
	"strconv"
	"strings"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
)

// IdentitySeparator joins identity text fields
const IdentitySeparator = " | "

// IdentityFields are the attributes that make up identity text. Nil or blank fields are omitted.
type IdentityFields struct {
	Name      string
	Position  *string
	Team      *string
	ClassYear *int
	Hometown  *string
}

// BuildIdentityText renders fields in the fixed order name, position, team, class year, hometown
func BuildIdentityText(f IdentityFields) string {
	parts := make([]string, 0, 5)
	add := func(s string) {
		if s = normalizers.CollapseWhitespace(s); s != "" {
			parts = append(parts, s)
		}
	}

	add(f.Name)
	if f.Position != nil {
		add(*f.Position)
	}
	if f.Team != nil {
		add(*f.Team)
	}
	if f.ClassYear != nil && *f.ClassYear != 0 {
		add(strconv.Itoa(*f.ClassYear))
	}
	if f.Hometown != nil {
		add(*f.Hometown)
	}

	return strings.Join(parts, IdentitySeparator)
}

// PlayerFields extracts identity fields from a canonical player
func PlayerFields(p *models.Player) IdentityFields {
	team := p.Team
	year := p.ClassYear
	return IdentityFields{
		Name:      p.FullName(),
		Position:  p.Position,
		Team:      &team,
		ClassYear: &year,
		Hometown:  p.Hometown,
	}
}

// MentionFields extracts identity fields from a mention, using defaultYear when it has none
func MentionFields(m *models.CandidateMention, defaultYear int) IdentityFields {
	year := defaultYear
	if m.ClassYear != nil {
		year = *m.ClassYear
	}
	return IdentityFields{
		Name:      m.Name,
		Position:  m.Position,
		Team:      m.Team,
		ClassYear: &year,
	}
}
