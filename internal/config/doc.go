// Package config defines server settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds the listen address, storage locations, broker
// addresses and the timezone alarm times of day are interpreted in.
package config
