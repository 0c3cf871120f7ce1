package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/sage/pkg/models"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestBuildIdentityText(t *testing.T) {
	tests := []struct {
		name     string
		fields   IdentityFields
		expected string
	}{
		{
			name: "all fields",
			fields: IdentityFields{
				Name:      "Arch Manning",
				Position:  strPtr("QB"),
				Team:      strPtr("Texas"),
				ClassYear: intPtr(2025),
				Hometown:  strPtr("New Orleans, LA"),
			},
			expected: "Arch Manning | QB | Texas | 2025 | New Orleans, LA",
		},
		{
			name:     "absent fields are omitted",
			fields:   IdentityFields{Name: "Arch Manning", Team: strPtr("Texas"), ClassYear: intPtr(2025)},
			expected: "Arch Manning | Texas | 2025",
		},
		{
			name:     "blank fields are omitted",
			fields:   IdentityFields{Name: "Arch Manning", Position: strPtr("  "), Team: strPtr(""), Hometown: strPtr(" ")},
			expected: "Arch Manning",
		},
		{
			name:     "whitespace is collapsed",
			fields:   IdentityFields{Name: "  Arch   Manning ", Team: strPtr(" Texas\t")},
			expected: "Arch Manning | Texas",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildIdentityText(tt.fields))
		})
	}
}

func TestBuildIdentityText_Deterministic(t *testing.T) {
	a := BuildIdentityText(IdentityFields{Name: "Jon Smith", Team: strPtr("State U"), ClassYear: intPtr(2024)})
	b := BuildIdentityText(IdentityFields{Name: "Jon Smith", Team: strPtr("State U"), ClassYear: intPtr(2024)})
	assert.Equal(t, []byte(a), []byte(b))
}

func TestPlayerFields(t *testing.T) {
	p := &models.Player{FirstName: "Arch", LastName: "Manning", Team: "Texas", ClassYear: 2025, Position: strPtr("QB")}
	assert.Equal(t, "Arch Manning | QB | Texas | 2025", BuildIdentityText(PlayerFields(p)))
}

func TestMentionFields_DefaultYear(t *testing.T) {
	m := &models.CandidateMention{Name: "Arch Manning", Team: strPtr("Texas")}
	assert.Equal(t, "Arch Manning | Texas | 2025", BuildIdentityText(MentionFields(m, 2025)))

	m.ClassYear = intPtr(2024)
	assert.Equal(t, "Arch Manning | Texas | 2024", BuildIdentityText(MentionFields(m, 2025)))
}
