// Package service wires MCP transports to the standings tools.
//
// It knows how to run MCP over stdio or streamable HTTP and delegates the
// meaning of every tool to the domain package.
package service
