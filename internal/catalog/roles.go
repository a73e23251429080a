package catalog

// Role classification is table-driven: prefix rules with named exception
// sets, plus exact-match overrides. Keeping the rules as data makes them
// independently testable and extensible without touching the loader.

// roleRule assigns a role to every code sharing a prefix, except for codes
// in the exception set, which get the exception role instead.
type roleRule struct {
	prefix        string
	role          Role
	exceptions    map[string]struct{}
	exceptionRole Role
}

// criticalCarePrimaries are primary by exact match regardless of prefix.
var criticalCarePrimaries = map[string]struct{}{
	"G521": {},
	"G522": {},
	"G523": {},
}

// emergencyAssessmentExceptions are H-prefix codes that are not standalone
// assessments (consultation and transfer codes billed alongside one).
var emergencyAssessmentExceptions = map[string]struct{}{
	"H055": {},
	"H065": {},
	"H100": {},
}

var roleRules = []roleRule{
	{prefix: "H", role: RolePrimary, exceptions: emergencyAssessmentExceptions, exceptionRole: RoleAddOn},
	{prefix: "A", role: RolePrimary},
	{prefix: "C", role: RolePrimary},
	{prefix: "E", role: RolePremium},
	{prefix: "K", role: RoleAddOn},
	{prefix: "G", role: RoleAddOn},
	{prefix: "Z", role: RoleAddOn},
	{prefix: "R", role: RoleAddOn},
	{prefix: "P", role: RoleAddOn},
}

// RoleOf classifies a code into its structural billing role.
func RoleOf(code string) Role {
	code = NormalizeCode(code)

	if _, ok := criticalCarePrimaries[code]; ok {
		return RolePrimary
	}

	for _, rule := range roleRules {
		if len(code) == 0 || code[:1] != rule.prefix {
			continue
		}
		if _, ok := rule.exceptions[code]; ok {
			return rule.exceptionRole
		}
		return rule.role
	}

	return RoleAddOn
}
