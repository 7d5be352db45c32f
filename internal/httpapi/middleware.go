package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"clawcity/internal/action"
	"clawcity/internal/security"
)

// ipLimiters mirrors utils.go's getLimiter/ipLimiters pattern, scoped
// per remote address instead of per agent — this is the outer
// perimeter guard; internal/action.Dispatcher runs its own per-agent
// limiter once a request is authenticated.
var (
	ipLock     sync.Mutex
	ipLimiters = map[string]*rate.Limiter{}
)

func getIPLimiter(ip string) *rate.Limiter {
	ipLock.Lock()
	defer ipLock.Unlock()
	l, ok := ipLimiters[ip]
	if !ok {
		l = rate.NewLimiter(5, 20)
		ipLimiters[ip] = l
	}
	return l
}

func (s *Server) middlewareIPRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if ip != "::1" && ip != "127.0.0.1" {
			if !getIPLimiter(ip).Allow() {
				http.Error(w, "Rate Limit Exceeded", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func middlewareCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// auth resolves the Bearer token to an agent and stashes its id on the
// request context. Missing/unknown tokens short-circuit with the
// AUTH_REQUIRED/AUTH_INVALID error codes rather than reaching the
// handler.
func (s *Server) auth(next func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			writeError(w, http.StatusUnauthorized, action.ErrAuthRequired, "missing bearer token")
			return
		}
		plaintext := strings.TrimPrefix(h, "Bearer ")
		if plaintext == "" {
			writeError(w, http.StatusUnauthorized, action.ErrAuthRequired, "missing bearer token")
			return
		}
		agent, err := s.Store.GetAgentByKeyHash(r.Context(), s.Store.DB, security.KeyHash(plaintext))
		if err != nil {
			writeError(w, http.StatusUnauthorized, action.ErrAuthInvalid, "unknown api key")
			return
		}
		if agent.Banned() {
			writeError(w, http.StatusUnauthorized, action.ErrAuthInvalid, "agent is banned")
			return
		}
		ctx := context.WithValue(r.Context(), agentIDKey, agent.ID)
		next(w, r.WithContext(ctx))
	}
}
