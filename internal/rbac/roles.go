package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner             = "owner"
	RoleOperator          = "operator" // runs and monitors live calls
	RoleAnalyst           = "analyst"
	RoleSuperAdmin        = "super_admin"
	RoleComplianceOfficer = "compliance_officer" // hidden role
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleComplianceOfficer }
