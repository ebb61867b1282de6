// Package command parses console input lines into typed alarm commands.
package command
