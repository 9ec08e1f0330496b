// Package config loads process configuration for the data layer.
//
// Values come, in order of precedence, from bound command-line flags, the
// process environment, the optional .env and .env.local files, and built-in
// defaults. Flag names map to environment variables by upper-casing and
// replacing '-' with '_' (the "database-url" flag reads DATABASE_URL).
//
// DATABASE_URL and REDIS_URL are required. Every string value is passed
// through a secret.Resolver, so ${VAR} expansion and secretref: references
// work anywhere:
//
//	DATABASE_URL=postgresql+asyncpg://app:secretref:file:pg_password@db:5432/app
//
// Driver-qualified schemes such as "postgresql+asyncpg" are normalized to the
// plain scheme the Go drivers accept.
package config
