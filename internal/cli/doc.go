// Package cli handles command-line argument parsing for the datashelf
// entrypoint. It translates flags into an app.Config and leaves command
// dispatch to the app package.
package cli
