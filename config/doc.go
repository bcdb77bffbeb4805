// Package config loads breaker configuration.
//
// Key groups, circuit definitions and the maintenance switch come from a
// YAML file; process settings such as store addresses and credentials come
// from the environment. Before the file is parsed every ${VAR} reference is
// replaced with the variable's value, and a missing variable is an error.
// Write $$ for a literal dollar sign.
package config
