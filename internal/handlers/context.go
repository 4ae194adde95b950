package handlers

import (
	"context"
	"net/http"

	"github.com/kursverein/kursanmeldung/internal/policy"
)

type ctxKey int

const identityKey ctxKey = iota

func withIdentity(r *http.Request, id policy.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

// IdentityFrom returns the staff identity RequireStaff stored on the
// request. ok is false on unauthenticated requests.
func IdentityFrom(r *http.Request) (policy.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(policy.Identity)
	return id, ok
}
