package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResidentRequiresValidPGYLevel(t *testing.T) {
	_, err := NewResident(uuid.New(), "A. Resident", "a@hospital.org", 4)
	require.ErrorIs(t, err, ErrInvalidPGYLevel)

	r, err := NewResident(uuid.New(), "A. Resident", "a@hospital.org", 2)
	require.NoError(t, err)
	assert.True(t, r.IsResident())
	assert.Equal(t, 2, r.PGYLevel())
}

func TestFacultyHasNoPGYLevel(t *testing.T) {
	f := NewFaculty(uuid.New(), "Dr. Core", "core@hospital.org", FacultyRoleCore, []string{"SportsMed"})
	assert.True(t, f.IsFaculty())
	assert.Equal(t, 0, f.PGYLevel())
	assert.True(t, f.HasSpecialty("SportsMed"))
	assert.False(t, f.HasSpecialty("Neuro"))
}

func TestPersonValidateCatchesCrossedVariants(t *testing.T) {
	p := &Person{Role: RoleResident}
	assert.ErrorIs(t, p.Validate(), ErrResidentRequiresPGYLevel)

	p = &Person{Role: RoleFaculty, Resident: &ResidentDetail{PGYLevel: 1}}
	assert.ErrorIs(t, p.Validate(), ErrFacultyForbidsPGYLevel)
}

func TestPersonSoftDelete(t *testing.T) {
	p, err := NewResident(uuid.New(), "A. Resident", "a@hospital.org", 1)
	require.NoError(t, err)

	assert.False(t, p.IsDeleted())
	p.SoftDelete()
	assert.True(t, p.IsDeleted())
	assert.NotNil(t, p.DeletedAt)
}
