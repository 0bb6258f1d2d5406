// Package logger holds the shell's two output channels: the one-line
// diagnostics shown to the user and the zap debug log of process and terminal
// events.
package logger
