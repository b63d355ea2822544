package handlers

import (
	"net/http"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// NewRouter wires handlers with middlewares. The auth endpoints stay public,
// everything under /users requires a valid access token.
func NewRouter(
	authHandler *AuthHandler,
	userHandler *UserHandler,
	authMiddleware func(http.Handler) http.Handler,
	adminMiddleware func(http.Handler) http.Handler,
	loggerMiddleware func(http.Handler) http.Handler,
) http.Handler {
	root := http.NewServeMux()
	root.Handle("/auth/", http.StripPrefix("/auth", authHandler.Handler()))
	root.Handle("/users/", http.StripPrefix("/users", chain(
		userHandler.Handler(adminMiddleware),
		authMiddleware,
	)))

	return chain(root, loggerMiddleware)
}
