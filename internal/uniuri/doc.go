// Package uniuri generates cryptographically secure random strings used
// for opaque credentials such as session tokens.
package uniuri
