// Package config builds the daemon's layered settings store and typed
// service configuration.
//
// Values are layered lowest priority first: built-in defaults, the user
// config file ~/.minotaur.yaml, the project config file ./minotaur.yaml,
// MINOTAUR_-prefixed environment variables (a ./.env file is loaded first
// when present), and finally command-line overrides. The highest priority
// wins per key; see the settings package for the priority model.
package config
