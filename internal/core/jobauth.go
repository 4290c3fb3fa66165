package core

import (
	"crypto/subtle"
	"net/http"

	"ferrycast/internal/types"
)

// jobTokenHeader carries the shared secret that authorizes job triggers.
const jobTokenHeader = "X-Job-Token"

// RequireJobToken guards the job-trigger endpoints with a shared-secret
// header, compared in constant time. A deployment without a configured token
// refuses triggers outright except in the local environment, where the check
// is bypassed for developer convenience.
func (s *Server) RequireJobToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := s.Config.Jobs.Token.Unmask()
		if expected == "" {
			if s.Config.IsLocal() {
				next.ServeHTTP(w, r)
				return
			}
			Error(w, r, types.NewAppError(types.ErrCodeInternalJobToken,
				"job trigger token is not configured", nil))
			return
		}

		provided := r.Header.Get(jobTokenHeader)
		if provided == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthJobTokenMissing,
				"job trigger token is required", nil))
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			Error(w, r, types.NewAppError(types.ErrCodeAuthJobTokenInvalid,
				"job trigger token is invalid", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}
