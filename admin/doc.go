// Package admin exposes circuit and cache administration over HTTP.
//
// Routes:
//
//	GET    /circuits                  every tracked circuit
//	DELETE /circuits                  clear every circuit
//	POST   /circuits:open-all         force every circuit Open
//	POST   /circuits:close-all        lower every Open circuit by one error
//	GET    /circuits/{key}            one circuit
//	DELETE /circuits/{key}            clear one circuit
//	POST   /circuits/{key}/open       force Open
//	POST   /circuits/{key}/close      set one error below the limit
//	GET    /circuits/{key}/logs?n=    newest events for the method key
//	GET    /cache/stats               per-node store statistics
//	POST   /cache/flush               flush the store
//	GET    /maintenance               kill-switch state
//	PUT    /maintenance               {"enabled": bool}
//
// When TokenConfig.Secret is set every route requires an HS256 bearer token
// whose roles claim contains "breaker-admin".
package admin
