// Package testutil provides shared fixtures for jwpure tests: slot
// inventories with known allocation outcomes, the canonical scenario
// constraint, and quiet loggers.
package testutil
