// Package interp drives line-by-line execution of a calculator script: it
// parses assignments, expands FOR loops and environment references, hands
// expressions to the engine, persists computed results, and keeps the
// variable binding table with its per-line memory release cycle.
package interp
