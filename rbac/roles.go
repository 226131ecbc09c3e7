// ABOUTME: Role configuration and route access rules for FastLearners pages
// ABOUTME: Decide applies the page guard order used by the web frontend

package rbac

import (
	"net/url"
	"strings"

	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

// RoleConfig describes where a role lands and which page prefixes it may visit.
type RoleConfig struct {
	HomeRoute          string
	AllowedRoutes      []string
	RestrictedRoutes   []string
	RequiresOnboarding bool
	CanSwitchRoles     bool
	AssignedBy         []models.Role
}

var roleConfigs = map[models.Role]RoleConfig{
	models.RoleGuest: {
		HomeRoute:          "/auth/set-role",
		AllowedRoutes:      []string{"/auth/login", "/auth/register", "/auth/set-role", "/onboarding", "/auth", "/auth/role", "/role"},
		RestrictedRoutes:   []string{"/dashboard", "/superadmin", "/admin", "/teacher"},
		RequiresOnboarding: true,
		CanSwitchRoles:     true,
	},
	models.RoleStudent: {
		HomeRoute: "/dashboard",
		AllowedRoutes: []string{
			"/dashboard", "/dashboard/settings", "/dashboard/lessons", "/dashboard/quizzes",
			"/dashboard/past-questions", "/dashboard/records", "/lessons", "/exercises", "/profile",
		},
		RestrictedRoutes: []string{"/superadmin", "/admin", "/teacher", "/onboarding"},
	},
	models.RoleGuardian: {
		HomeRoute:        "/dashboard",
		AllowedRoutes:    []string{"/dashboard", "/dashboard/settings", "/dashboard/records", "/progress", "/profile", "/guardian-tools"},
		RestrictedRoutes: []string{"/superadmin", "/admin", "/teacher", "/onboarding"},
	},
	models.RoleTeacher: {
		HomeRoute:        "/dashboard/teacher/lessons",
		AllowedRoutes:    []string{"/dashboard/teacher", "/dashboard", "/teacher", "/lessons", "/uploads", "/profile"},
		RestrictedRoutes: []string{"/superadmin", "/admin", "/onboarding"},
		AssignedBy:       []models.Role{models.RoleSuperadmin},
	},
	models.RoleAdmin: {
		HomeRoute: "/dashboard/admin/charts",
		AllowedRoutes: []string{
			"/dashboard/admin", "/dashboard", "/dashboard/settings", "/admin",
			"/users", "/reports", "/lessons", "/profile",
		},
		RestrictedRoutes: []string{"/superadmin", "/teacher", "/onboarding"},
		AssignedBy:       []models.Role{models.RoleSuperadmin},
	},
	models.RoleSuperadmin: {
		HomeRoute: "/dashboard/superadmin",
		AllowedRoutes: []string{
			"/dashboard/superadmin", "/dashboard", "/dashboard/settings", "/superadmin", "/users",
			"/lessons", "/uploads", "/reports", "/settings", "/profile",
		},
		AssignedBy: []models.Role{models.RoleSuperadmin},
	},
}

// Hierarchy ranks roles; student and guardian share a level.
var Hierarchy = map[models.Role]int{
	models.RoleGuest:      0,
	models.RoleStudent:    1,
	models.RoleGuardian:   1,
	models.RoleTeacher:    2,
	models.RoleAdmin:      3,
	models.RoleSuperadmin: 4,
}

// Permission names a protected route group.
type Permission string

const (
	PermSuperadmin Permission = "SUPERADMIN"
	PermAdmin      Permission = "ADMIN"
	PermTeacher    Permission = "TEACHER"
	PermStudent    Permission = "STUDENT"
	PermGuardian   Permission = "GUARDIAN"
)

// protectedPatterns is checked in this order.
var protectedPatterns = []struct {
	perm     Permission
	prefixes []string
}{
	{PermSuperadmin, []string{"/admin/roles", "/admin/users/assign-roles", "/admin/system-config"}},
	{PermAdmin, []string{"/admin/users", "/admin/classes", "/admin/reports", "/dashboard/admin/lessons"}},
	{PermTeacher, []string{"/admin/lessons", "/teacher/create", "/teacher/evaluate", "/dashboard/lessons"}},
	{PermStudent, []string{"/dashboard/exercises", "/dashboard/progress"}},
	{PermGuardian, []string{"/guardian/children", "/guardian/reports"}},
}

// PublicRoutes need no session. "/" matches only itself.
var PublicRoutes = []string{
	"/", "/about", "/contact", "/privacy", "/terms",
	"/auth/login", "/auth/register", "/auth/forgot-password", "/auth/reset-password",
	"/auth/verify-email", "/auth/create-password", "/auth/set-role", "/auth/role",
}

// AuthRoutes bounce an authenticated user back to their home route.
var AuthRoutes = []string{
	"/auth/login", "/auth/register", "/auth/verify-email",
	"/auth/forgot-password", "/auth/reset-password", "/auth/create-password",
}

// Config returns the configuration for role and whether the role is known.
func Config(role models.Role) (RoleConfig, bool) {
	cfg, ok := roleConfigs[role]
	return cfg, ok
}

// HomeRoute returns the landing page for role. Unknown roles land on the guest home.
func HomeRoute(role models.Role) string {
	if cfg, ok := roleConfigs[role]; ok {
		return cfg.HomeRoute
	}
	return roleConfigs[models.RoleGuest].HomeRoute
}

// CanAccessRoute reports whether role may open path.
func CanAccessRoute(role models.Role, path string) bool {
	if role == models.RoleSuperadmin {
		return true
	}
	cfg, ok := roleConfigs[role]
	if !ok {
		return false
	}
	if matchesAny(path, cfg.RestrictedRoutes) {
		return false
	}
	if matchesAny(path, cfg.AllowedRoutes) {
		return true
	}
	for _, p := range protectedPatterns {
		if matchesAny(path, p.prefixes) {
			return HasPermission(role, p.perm)
		}
	}
	return false
}

// HasPermission reports whether role satisfies perm.
func HasPermission(role models.Role, perm Permission) bool {
	level, ok := Hierarchy[role]
	if !ok {
		return false
	}
	switch perm {
	case PermSuperadmin:
		return level >= Hierarchy[models.RoleSuperadmin]
	case PermAdmin:
		return level >= Hierarchy[models.RoleAdmin]
	case PermTeacher:
		return level >= Hierarchy[models.RoleTeacher]
	case PermStudent:
		return role == models.RoleStudent || level >= Hierarchy[models.RoleTeacher]
	case PermGuardian:
		return role == models.RoleGuardian || level >= Hierarchy[models.RoleAdmin]
	default:
		return false
	}
}

// AtLeast reports whether role ranks at or above min.
func AtLeast(role, min models.Role) bool {
	level, ok := Hierarchy[role]
	return ok && level >= Hierarchy[min]
}

// CanAssignRole reports whether actor may grant target.
func CanAssignRole(actor, target models.Role) bool {
	cfg, ok := roleConfigs[target]
	if !ok {
		return false
	}
	if len(cfg.AssignedBy) == 0 {
		return true
	}
	for _, r := range cfg.AssignedBy {
		if r == actor {
			return true
		}
	}
	return false
}

// Decision reasons.
const (
	ReasonPublic        = "PUBLIC_ROUTE"
	ReasonUnauth        = "NOT_AUTHENTICATED"
	ReasonAuthenticated = "ALREADY_AUTHENTICATED"
	ReasonOnboarding    = "ONBOARDING_REQUIRED"
	ReasonDenied        = "RBAC_ACCESS_DENIED"
	ReasonAllowed       = "ALLOWED"
)

// Decision is the outcome of guarding one page path.
type Decision struct {
	Allowed  bool        `json:"allowed"`
	Redirect string      `json:"redirect,omitempty"`
	Reason   string      `json:"reason"`
	Role     models.Role `json:"role,omitempty"`
}

// Decide guards path for user; a nil user is unauthenticated.
//
// Order: public pages pass, anonymous users go to login, signed-in users on
// auth pages go home, guests are held in onboarding, then the role table decides.
func Decide(path string, user *models.User) Decision {
	authenticated := user != nil
	role := user.PrimaryRole()

	if matchesAny(path, PublicRoutes) && !(authenticated && matchesAny(path, AuthRoutes)) {
		return Decision{Allowed: true, Reason: ReasonPublic}
	}

	if !authenticated {
		return Decision{
			Redirect: "/auth/login?callbackUrl=" + url.QueryEscape(path),
			Reason:   ReasonUnauth,
		}
	}

	if matchesAny(path, AuthRoutes) {
		return Decision{Redirect: HomeRoute(role), Reason: ReasonAuthenticated, Role: role}
	}

	if role == models.RoleGuest {
		if hasPrefix(path, "/onboarding") || hasPrefix(path, "/guest") {
			return Decision{Allowed: true, Reason: ReasonAllowed, Role: role}
		}
		return Decision{Redirect: "/onboarding", Reason: ReasonOnboarding, Role: role}
	}

	if !CanAccessRoute(role, path) {
		return Decision{Redirect: HomeRoute(role), Reason: ReasonDenied, Role: role}
	}

	return Decision{Allowed: true, Reason: ReasonAllowed, Role: role}
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if hasPrefix(path, p) {
			return true
		}
	}
	return false
}

// hasPrefix matches whole path segments, so "/dashboard" does not match "/dashboards".
func hasPrefix(path, prefix string) bool {
	if prefix == "/" {
		return path == "/"
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
