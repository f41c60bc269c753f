// Package logs reads the encodeflow log file for the CLI.
//
// Last returns the trailing lines that mention a given asset or media id with
// bounded memory. Follow polls for appended lines until its context ends, and
// rereads from the start when the file is truncated.
package logs
