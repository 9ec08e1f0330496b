// Package cli implements the datahealth command tree.
//
// Every command reads its configuration through config.Load, so flags,
// environment variables, .env files and secret references all apply.
package cli
