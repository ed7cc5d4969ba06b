// Package deps resolves the external binaries vcxenc invokes and reports
// whether each one can be found on disk or PATH.
package deps
