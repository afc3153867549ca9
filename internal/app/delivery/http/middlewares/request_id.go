package middlewares

import (
	"context"
	"net/http"

	"clinic-booking-service/internal/pkg/constvars"
	"clinic-booking-service/internal/pkg/utils"
)

// RequestID makes every request traceable: a client-supplied id from the
// X-Request-ID header is trusted, otherwise one is generated. The id is
// echoed back on the response.
func (m *Middlewares) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(constvars.HeaderRequestID)
		if requestID == "" {
			requestID = utils.GenerateRequestID()
		}

		w.Header().Set(constvars.HeaderRequestID, requestID)
		ctx := context.WithValue(r.Context(), constvars.CONTEXT_REQUEST_ID_KEY, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
