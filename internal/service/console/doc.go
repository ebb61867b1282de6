// Package console is the interactive prompt of alarm-groups. It reads lines
// with readline, parses them into commands and calls the alarm service.
package console
