// Package cli parses the tsquery command line into an app.Config.
package cli
