package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudienceFilterIsEmpty(t *testing.T) {
	assert.True(t, AudienceFilter{}.IsEmpty())
	assert.False(t, AudienceFilter{All: true}.IsEmpty())
	assert.False(t, AudienceFilter{Roles: []Role{RoleManager}}.IsEmpty())
	assert.False(t, AudienceFilter{LocationIDs: []string{"l1"}}.IsEmpty())
	assert.False(t, AudienceFilter{EmployeeIDs: []string{"u1"}}.IsEmpty())
}

func TestAudienceFilterDescribe(t *testing.T) {
	tests := []struct {
		name   string
		filter AudienceFilter
		want   string
	}{
		{name: "all", filter: AudienceFilter{All: true}, want: "all users"},
		{name: "roles only", filter: AudienceFilter{Roles: []Role{RoleManager, RoleOwner}}, want: "roles: MANAGER, OWNER"},
		{name: "locations only", filter: AudienceFilter{LocationIDs: []string{"l1", "l2"}}, want: "locations: 2 selected"},
		{
			name:   "combined",
			filter: AudienceFilter{Roles: []Role{RoleEmployee}, LocationIDs: []string{"l1"}, EmployeeIDs: []string{"u1", "u2", "u3"}},
			want:   "roles: EMPLOYEE, locations: 1 selected, employees: 3 selected",
		},
		{name: "empty", filter: AudienceFilter{}, want: "no filters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Describe())
		})
	}
}

func TestAudienceFilterScanRoundTrip(t *testing.T) {
	original := AudienceFilter{Roles: []Role{RoleManager}, LocationIDs: []string{"l1"}}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned AudienceFilter
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, original, scanned)

	assert.Error(t, scanned.Scan(42))
}
