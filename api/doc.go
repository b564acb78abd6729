// Package api holds the wire-level contract shared by the ClarityCast HTTP
// server and its Go client.
//
// # Endpoints
//
//	POST /api/clarify       ClarifyRequest      -> clarity.Result
//	POST /api/communicate   CommunicateRequest  -> clarity.CommunicateResult
//	GET  /health /healthz   liveness
//	GET  /ready             readiness (cache store ping)
//	GET  /version           VersionInfo
//
// # Errors
//
// Every non-2xx response carries an ErrorResponse:
//
//	{"errorType":"RATE_LIMIT","message":"...","retryAfterSeconds":30}
//
// RATE_LIMIT responses also set the Retry-After header. The debug field is
// present only when the server runs in debug mode.
package api
