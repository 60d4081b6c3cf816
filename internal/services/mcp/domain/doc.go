// Package domain translates MCP tool calls into standings queries.
//
// Every call reads a fresh dataset from the remote system of record, converts
// it to a snapshot and runs the ranking and assignment engines over it. No
// tool mutates data.
package domain
