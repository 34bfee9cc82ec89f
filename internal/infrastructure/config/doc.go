// Package config handles loading and validating sams-auth configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (SAMSAUTH_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The JWT signing secret is REQUIRED and must be at least 32
//     characters. It is never generated at startup: a secret that
//     changes on restart silently invalidates every outstanding token,
//     which is a deployment misconfiguration, not a feature.
//   - Sensitive values should be set via environment variables.
//   - The config file should have restricted permissions (0600).
//
// Configuration is loaded once at process start and passed by reference;
// there is no ambient global lookup.
package config
