package enums

const (
	ROLE_SUPER_ADMIN    = "super_admin"
	ROLE_ADMIN          = "admin"
	ROLE_DOCTOR         = "doctor"
	ROLE_NURSE          = "nurse"
	ROLE_RECEPTIONIST   = "receptionist"
	ROLE_PHARMACIST     = "pharmacist"
	ROLE_LAB_TECHNICIAN = "lab_technician"
	ROLE_BILLING        = "billing"
	ROLE_PATIENT        = "patient"
)

var roles = map[string]struct{}{
	ROLE_SUPER_ADMIN:    {},
	ROLE_ADMIN:          {},
	ROLE_DOCTOR:         {},
	ROLE_NURSE:          {},
	ROLE_RECEPTIONIST:   {},
	ROLE_PHARMACIST:     {},
	ROLE_LAB_TECHNICIAN: {},
	ROLE_BILLING:        {},
	ROLE_PATIENT:        {},
}

func IsKnownRole(role string) bool {
	_, ok := roles[role]
	return ok
}
