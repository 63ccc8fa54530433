package testutil

import (
	"net/http"

	"biblioteca/internal/identity"
	"biblioteca/pkg/requestcontext"
)

// WithPrincipal stores p on the request the way the auth middleware does.
func WithPrincipal(req *http.Request, p *identity.Principal) *http.Request {
	ctx := identity.WithPrincipal(req.Context(), p)
	if p != nil {
		ctx = requestcontext.WithUserID(ctx, p.ID())
	}
	return req.WithContext(ctx)
}

// WithClientMetadata sets the client address and host the metadata middleware
// would have extracted.
func WithClientMetadata(req *http.Request, clientIP, host string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, host))
}
