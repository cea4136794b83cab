// Package economy keeps per-player bank accounts alongside the game
// sessions: balance lookup with lazy account creation, administrative
// grants, and a simple double-or-nothing gamble on a 1-100 roll.
package economy
