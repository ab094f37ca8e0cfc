// Package ipc exposes daemon control over JSON-RPC on a Unix domain socket.
// The CLI is the only intended consumer; the wire types are deliberately
// plain so the protocol stays stable across versions.
package ipc
