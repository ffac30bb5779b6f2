package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

var sentryHandler = sentryhttp.New(sentryhttp.Options{Repanic: true})

// Sentry runs each request inside a Sentry transaction and reports 5xx
// responses. With no client configured the hub drops everything.
func Sentry(next http.Handler) http.Handler {
	return sentryHandler.Handle(reportServerErrors(next))
}

func reportServerErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			next.ServeHTTP(w, r)
			return
		}

		if requestID := GetRequestID(r.Context()); requestID != "" {
			hub.Scope().SetTag("request_id", requestID)
		}

		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status >= http.StatusInternalServerError {
			hub.CaptureMessage(fmt.Sprintf("%s %s: HTTP %d", r.Method, r.URL.Path, rec.status))
		}
	})
}
