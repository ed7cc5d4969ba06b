// Package testsupport holds helpers shared by package tests: temp-dir backed
// configs, stub executables, a ledger opener and an in-process decoder that
// produces synthetic frames.
package testsupport
