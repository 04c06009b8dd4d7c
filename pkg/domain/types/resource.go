package types

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ResourceCategory names a countable resource pool.
// Blood units and staff are parameterized as "BLOOD_UNIT:<type>" and "STAFF:<role>".
type ResourceCategory string

const (
	ResourceBed           ResourceCategory = "BED"
	ResourceICUBed        ResourceCategory = "ICU_BED"
	ResourceOperatingRoom ResourceCategory = "OPERATING_ROOM"

	bloodUnitPrefix = "BLOOD_UNIT:"
	staffPrefix     = "STAFF:"
)

var (
	ErrInvalidResourceCategory = goerr.New("invalid resource category")

	bloodTypes       = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	staffRolePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,31}$`)
)

// BloodTypes returns the ABO/Rh types accepted for blood unit pools
func BloodTypes() []string {
	return append([]string(nil), bloodTypes...)
}

// BloodUnit returns the category of blood units of the given type
func BloodUnit(bloodType string) ResourceCategory {
	return ResourceCategory(bloodUnitPrefix + strings.ToUpper(bloodType))
}

// Staff returns the category of staff holding the given role
func Staff(role string) ResourceCategory {
	return ResourceCategory(staffPrefix + strings.ToUpper(role))
}

// IsBloodUnit reports whether c is a blood unit pool
func (c ResourceCategory) IsBloodUnit() bool {
	return strings.HasPrefix(string(c), bloodUnitPrefix)
}

// IsStaff reports whether c is a staff pool
func (c ResourceCategory) IsStaff() bool {
	return strings.HasPrefix(string(c), staffPrefix)
}

// Validate checks if the resource category is well formed
func (c ResourceCategory) Validate() error {
	switch c {
	case ResourceBed, ResourceICUBed, ResourceOperatingRoom:
		return nil
	}

	if c.IsBloodUnit() {
		bt := strings.TrimPrefix(string(c), bloodUnitPrefix)
		for _, v := range bloodTypes {
			if v == bt {
				return nil
			}
		}
		return goerr.Wrap(ErrInvalidResourceCategory, "unknown blood type", goerr.V("category", string(c)))
	}

	if c.IsStaff() {
		if staffRolePattern.MatchString(strings.TrimPrefix(string(c), staffPrefix)) {
			return nil
		}
		return goerr.Wrap(ErrInvalidResourceCategory, "invalid staff role", goerr.V("category", string(c)))
	}

	return goerr.Wrap(ErrInvalidResourceCategory, "unknown resource category", goerr.V("category", string(c)))
}

// String returns the string representation of the resource category
func (c ResourceCategory) String() string {
	return string(c)
}
