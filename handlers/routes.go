// ABOUTME: Declarative route table for API endpoints
// ABOUTME: Defines all routes with their HTTP methods, guards and handlers, mounted on chi

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/travis-wayne/fastlearners-frontend-sub005/middleware"
	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

// Route defines an API endpoint with its HTTP method and handler.
type Route struct {
	Method  string           // HTTP method (GET, POST, etc.)
	Path    string           // chi pattern (e.g., "/api/superadmin/lessons/{id}")
	Handler http.HandlerFunc // Handler with its per-route middleware applied
}

// Routes returns all API routes for registration.
func (h *Handler) Routes() []Route {
	chain := middleware.Chain

	authLimit := middleware.RateLimit(h.authLimiter, middleware.ClientIP)
	uploadLimit := middleware.RateLimit(h.uploadLimiter, middleware.SessionKey)
	defaultLimit := middleware.RateLimit(h.defaultLimiter, middleware.UserOrIP)

	session := middleware.RequireSession(h.codec, false)
	onboarding := middleware.RequireSession(h.codec, true)
	lessonStaff := middleware.RequireRole(models.RoleSuperadmin, models.RoleAdmin, models.RoleTeacher)
	uploaders := middleware.RequireRole(models.RoleSuperadmin, models.RoleTeacher)

	routes := []Route{
		// Health & Documentation
		{Method: http.MethodGet, Path: "/api/health", Handler: h.Health},
		{Method: http.MethodGet, Path: "/api/openapi.yaml", Handler: h.OpenAPISpec},

		// Auth: anonymous
		{Method: http.MethodPost, Path: "/api/auth/register", Handler: chain(h.Register, authLimit)},
		{Method: http.MethodPost, Path: "/api/auth/verify-email", Handler: chain(h.VerifyEmail, authLimit)},
		{Method: http.MethodPost, Path: "/api/auth/resend-verification-code", Handler: chain(h.ResendVerificationCode, authLimit)},
		{Method: http.MethodPost, Path: "/api/auth/reset-password", Handler: chain(h.ResetPassword, authLimit)},
		{Method: http.MethodPost, Path: "/api/auth/login", Handler: chain(h.Login, authLimit)},
		{Method: http.MethodGet, Path: "/api/auth/google/callback", Handler: chain(h.GoogleCallback, authLimit)},
		{Method: http.MethodPost, Path: "/api/auth/logout", Handler: h.Logout},

		// Auth: onboarding funnel accepts the registration token
		{Method: http.MethodPost, Path: "/api/auth/create-password", Handler: chain(h.CreatePassword, authLimit, onboarding)},
		{Method: http.MethodPost, Path: "/api/auth/set-role", Handler: chain(h.SetRole, authLimit, onboarding)},

		// Session
		{Method: http.MethodGet, Path: "/api/auth/session", Handler: chain(h.Session, defaultLimit)},
		{Method: http.MethodGet, Path: "/api/auth/me", Handler: chain(h.Session, defaultLimit)},
		{Method: http.MethodGet, Path: "/api/auth/guard", Handler: chain(h.Guard, defaultLimit)},
		{Method: http.MethodGet, Path: "/api/user", Handler: chain(h.CurrentUser, session, defaultLimit)},

		// Profile
		{Method: http.MethodGet, Path: "/api/profile", Handler: chain(h.Profile, session, defaultLimit)},
		{Method: http.MethodPost, Path: "/api/profile/edit", Handler: chain(h.EditProfile, session, defaultLimit)},
		{Method: http.MethodPost, Path: "/api/profile/edit/password", Handler: chain(h.EditPassword, session, defaultLimit)},
		{Method: http.MethodGet, Path: "/api/profile/check-username/{username}", Handler: chain(h.CheckUsername, session, defaultLimit)},
		{Method: http.MethodDelete, Path: "/api/profile/delete", Handler: chain(h.DeleteProfile, session, defaultLimit)},
		{Method: http.MethodDelete, Path: "/api/profile/delete-now", Handler: chain(h.DeleteProfileNow, session, defaultLimit)},

		// Subjects
		{Method: http.MethodGet, Path: "/api/subjects", Handler: chain(h.Subjects, session, defaultLimit)},
		{Method: http.MethodPost, Path: "/api/subjects/update-selective", Handler: chain(h.UpdateSelectiveSubjects, session, defaultLimit)},

		// Superadmin lessons
		{Method: http.MethodPost, Path: "/api/superadmin/lessons/list", Handler: chain(h.ListLessons, session, lessonStaff, defaultLimit)},
		{Method: http.MethodGet, Path: "/api/superadmin/lessons/trashed", Handler: chain(h.TrashedLessons, session, lessonStaff, defaultLimit)},
		{Method: http.MethodGet, Path: "/api/superadmin/lessons/metadata", Handler: chain(h.LessonMetadata, session, lessonStaff, defaultLimit)},
		{Method: http.MethodGet, Path: "/api/superadmin/lessons/{id}", Handler: chain(h.GetLesson, session, lessonStaff, defaultLimit)},
		{Method: http.MethodDelete, Path: "/api/superadmin/lessons/{id}", Handler: chain(h.DeleteLesson, session, lessonStaff, defaultLimit)},
		{Method: http.MethodGet, Path: "/api/superadmin/lessons/{id}/content", Handler: chain(h.GetLessonContent, session, lessonStaff, defaultLimit)},
		{Method: http.MethodPost, Path: "/api/superadmin/lessons/{id}/restore", Handler: chain(h.RestoreLesson, session, lessonStaff, defaultLimit)},

		// Uploads
		{Method: http.MethodPost, Path: "/api/uploads/lessons", Handler: chain(h.Upload("lessons"), uploadLimit, session, uploaders)},
		{Method: http.MethodPost, Path: "/api/uploads/concepts", Handler: chain(h.Upload("concepts"), uploadLimit, session, uploaders)},
		{Method: http.MethodPost, Path: "/api/uploads/examples", Handler: chain(h.Upload("examples"), uploadLimit, session, uploaders)},
		{Method: http.MethodPost, Path: "/api/uploads/exercises", Handler: chain(h.Upload("exercises"), uploadLimit, session, uploaders)},
		{Method: http.MethodPost, Path: "/api/uploads/general-exercises", Handler: chain(h.Upload("general-exercises"), uploadLimit, session, uploaders)},
		{Method: http.MethodPost, Path: "/api/uploads/check-markers", Handler: chain(h.Upload("check-markers"), uploadLimit, session, uploaders)},
		{Method: http.MethodPost, Path: "/api/uploads/" + models.UploadKindAll, Handler: chain(h.Upload(models.UploadKindAll), uploadLimit, session, uploaders)},
	}

	// Generic proxy
	for _, method := range ProxyMethods {
		routes = append(routes, Route{Method: method, Path: "/api/proxy/*", Handler: chain(h.Proxy, defaultLimit)})
	}

	return routes
}

// NewRouter mounts every route on a chi router behind request logging and CORS.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Std(middleware.LogRequest))
	r.Use(middleware.Std(middleware.CORS(h.cfg.CORSAllowedOrigins)))

	for _, route := range h.Routes() {
		r.Method(route.Method, route.Path, route.Handler)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		h.writeError(w, req, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		h.writeError(w, req, "Method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}
