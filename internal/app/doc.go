// Package app wires a calculator run together: it builds the isolated
// logger, merges the settings file with command-line flags, registers the
// expression functions, and drives the script interpreter.
package app
