// Package auth guards the detailed health endpoints.
//
// Credentials are either static API keys (X-API-Key) or HMAC-signed bearer
// tokens. Both are configured through config.AuthSettings; an empty
// configuration leaves the endpoints open.
package auth
