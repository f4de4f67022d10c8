// Package config provides the declared configuration of a BCG identification
// project.
//
// # Sources
//
// Values are resolved by viper in the usual order: explicit Set calls and
// bound command-line flags, then BCGIDENT_* environment variables (dots in
// keys become underscores, e.g. BCGIDENT_SIDE_LENGTH_VALUE), then the config
// file, then the built-in defaults. The config file is ./bcgident.yaml unless
// CfgFile names another one; a missing default file is not an error.
//
// # Declared configuration
//
// ProjectConfig is the typed view of those values. ProjectConfig.Declared
// reduces it to the four guarded fields that the history package compares
// against the persisted project record, so changing any of the sample file
// name, the enabled missions, the cosmology or the side length after setup
// is reported as configuration drift.
package config
