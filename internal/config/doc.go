// Package config loads padsync.json, the optional project configuration file
// for the padsync server.
//
// Configuration is resolved in three layers, each overriding the previous:
// built-in defaults, the padsync.json file (when present), and PADSYNC_*
// environment variables. The serve command's flags override all three.
package config
