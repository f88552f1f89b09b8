package controllers

import (
	"net/http"

	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/pkg/response"
	"github.com/shashiranjanraj/bookstore/pkg/session"
)

// RequireAdmin rejects requests whose session is not logged in as admin.
// Services check again; this stops the request before the body is read.
func RequireAdmin(gate *services.AdminGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.IsAdmin(session.FromCtx(r)) {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
