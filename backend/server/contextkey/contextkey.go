// Package contextkey holds the typed keys used to pass request-scoped values
// through context without colliding with other packages.
package contextkey

type key string

// UserIDKey carries the authenticated user's id, set by the JWT middleware.
const UserIDKey = key("userID")
