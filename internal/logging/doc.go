// Package logging provides a simple leveled logging interface.
//
// It supports four levels (DEBUG, INFO, WARN, ERROR) plus Fatal, which logs
// and terminates the process. The level is configured once from the
// environment: LOG_LEVEL selects a level by name, and DEBUG=1 (or true/yes/on)
// forces debug logging regardless of LOG_LEVEL.
package logging
