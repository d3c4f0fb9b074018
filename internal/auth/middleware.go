package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const (
	sessionCookie = "session_id"
	stateCookie   = "oauth_state"
)

var (
	// ErrUnauthenticated means no valid session or token was presented
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the user is known but not in an admin group
	ErrForbidden = errors.New("admin access required")
)

// AuthProvider is a common interface for authentication providers
type AuthProvider interface {
	LoginHandler(w http.ResponseWriter, r *http.Request)
	CallbackHandler(w http.ResponseWriter, r *http.Request)
	LogoutHandler(w http.ResponseWriter, r *http.Request)
	Authenticate(ctx context.Context, token string) (*User, error)
}

type userKey struct{}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext retrieves the authenticated user, or nil
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userKey{}).(*User)
	return user
}

// GetUser retrieves the authenticated user from the request context
func GetUser(r *http.Request) *User {
	return UserFromContext(r.Context())
}

// Guard enforces admin access on write routes
type Guard struct {
	provider    AuthProvider
	adminGroups []string
}

// NewGuard creates a guard. Members of any of adminGroups are admins.
func NewGuard(provider AuthProvider, adminGroups []string) *Guard {
	if len(adminGroups) == 0 {
		adminGroups = []string{"admins"}
	}
	return &Guard{provider: provider, adminGroups: adminGroups}
}

// Provider returns the underlying authentication provider
func (g *Guard) Provider() AuthProvider { return g.provider }

// IsAdmin checks if the user has admin privileges
func (g *Guard) IsAdmin(user *User) bool {
	if user == nil {
		return false
	}
	for _, group := range user.Groups {
		if slices.Contains(g.adminGroups, group) {
			return true
		}
	}
	return false
}

// Check authenticates token and requires admin membership
func (g *Guard) Check(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	user, err := g.provider.Authenticate(ctx, token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if !g.IsAdmin(user) {
		return user, ErrForbidden
	}
	return user, nil
}

// RequireAdmin answers 401 or 403 with a JSON error instead of redirecting,
// since API callers cannot follow a login flow.
func (g *Guard) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := g.Check(r.Context(), TokenFromRequest(r))
		if err != nil {
			code := http.StatusUnauthorized
			if errors.Is(err, ErrForbidden) {
				code = http.StatusForbidden
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// UnaryInterceptor requires an admin bearer token in the "authorization"
// metadata for the listed full method names. Other methods pass through.
func (g *Guard) UnaryInterceptor(adminMethods ...string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !slices.Contains(adminMethods, info.FullMethod) {
			return handler(ctx, req)
		}
		user, err := g.Check(ctx, tokenFromMetadata(ctx))
		switch {
		case errors.Is(err, ErrForbidden):
			return nil, status.Error(codes.PermissionDenied, err.Error())
		case err != nil:
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(WithUser(ctx, user), req)
	}
}

// TokenFromRequest returns the bearer token, falling back to the session cookie
func TokenFromRequest(r *http.Request) string {
	if token, ok := bearer(r.Header.Get("Authorization")); ok {
		return token
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	for _, v := range md.Get("authorization") {
		if token, ok := bearer(v); ok {
			return token
		}
	}
	return ""
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func setSessionCookie(w http.ResponseWriter, id string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
