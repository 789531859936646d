package httptransport

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dErrors "github.com/viniciuscfreitas/primeleague18-sub003/pkg/domain-errors"
	"github.com/viniciuscfreitas/primeleague18-sub003/pkg/requestcontext"
)

// RequestMeta pins a single clock reading for the request and stashes the
// caller's address, user agent, and a correlation ID into the context so
// services stay transport-agnostic.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
		ctx = requestcontext.WithClientIP(ctx, clientAddr(r))
		ctx = requestcontext.WithUserAgent(ctx, r.UserAgent())

		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, reqID)
		w.Header().Set("X-Request-Id", reqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// adminAuth guards operator routes with the configured bcrypt key hash.
func (h *Handler) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Admin-Key")
		if key == "" {
			writeError(w, dErrors.New(dErrors.CodeUnauthorized, "admin key required"))
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(h.adminKey), []byte(key)); err != nil {
			h.logger.WarnContext(r.Context(), "admin key rejected",
				slog.String("remote_addr", requestcontext.ClientIP(r.Context())))
			writeError(w, dErrors.New(dErrors.CodeUnauthorized, "admin key rejected"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
