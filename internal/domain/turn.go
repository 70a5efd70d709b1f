// Package domain holds shared domain types.
package domain

// Turn is one completed conversation exchange: what the user asked and
// what the assistant answered.
type Turn struct {
	Input    string
	Response string
}
