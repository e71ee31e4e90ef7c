// Package host is the supervising side of a guest run.
//
// A Session answers the guest's channel exchanges and register writes,
// meters cycles and, once the guest halts, turns what it observed into a
// Receipt. Guests run either in-process through NativeExecutor or as
// GOOS=wasip1 modules through the wazero-backed Executor.
package host
