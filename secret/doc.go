// Package secret resolves connection settings that should not live in plain
// configuration.
//
// Values pass through two steps:
//   - Strict environment expansion: ${VAR} must be set (see ExpandEnvStrict)
//   - Secret references: "secretref:<provider>:<ref>" is replaced by the
//     value the named Provider returns (see Resolver)
//
// Two providers are built in and pre-registered in DefaultRegistry:
//   - env:  secretref:env:PG_PASSWORD reads an environment variable
//   - file: secretref:file:pg_password reads /run/secrets/pg_password,
//     the layout used by Docker and Kubernetes secret mounts
//
// References may be inline, which keeps passwords out of connection URLs:
//
//	postgres://app:secretref:file:pg_password@db:5432/app
package secret
