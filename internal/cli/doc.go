// Package cli turns command-line arguments into an app.Config, with
// environment-variable defaults for the common path flags.
package cli
