package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleOf(t *testing.T) {
	tests := []struct {
		code string
		want Role
	}{
		{"H101", RolePrimary},
		{"H153", RolePrimary},
		{"A001", RolePrimary},
		{"C124", RolePrimary},
		{"H055", RoleAddOn}, // consultation supplements, not assessments
		{"H065", RoleAddOn},
		{"H100", RoleAddOn},
		{"E401", RolePremium},
		{"G521", RolePrimary}, // critical care attends as the primary service
		{"G522", RolePrimary},
		{"G212", RoleAddOn},
		{"K013", RoleAddOn},
		{"Z437", RoleAddOn},
		{"R527", RoleAddOn},
		{"P009", RoleAddOn},
		{"X999", RoleAddOn}, // unknown prefix defaults to add-on
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			assert.Equal(t, tc.want, RoleOf(tc.code))
		})
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		code string
		want Category
	}{
		{"A001", CategoryAssessment},
		{"C124", CategoryConsultation},
		{"E401", CategoryPremium},
		{"G212", CategoryProcedure},
		{"H101", CategoryEmergency},
		{"K013", CategoryCounselling},
		{"P009", CategoryObstetrics},
		{"R527", CategorySurgery},
		{"Z437", CategoryProcedure},
		{"X999", CategoryOther},
		{"", CategoryOther},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, CategoryOf(tc.code), "code %q", tc.code)
	}
}
