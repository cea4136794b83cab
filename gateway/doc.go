// Package gateway turns chat messages into game and economy operations.
//
// A Gateway parses prefixed commands (!ttt, !accept, !place, ...) from
// inbound messages, calls the game service or ledger, and renders the
// result back into the channel through a Chat implementation. State is
// always committed before anything is rendered, so a render failure can
// never leave the session behind the chat view.
package gateway
