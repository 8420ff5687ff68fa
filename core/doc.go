// Package core wires the daemon together: the layered settings store, the
// component lifecycle, the scheduler, error reporting, and the reader to
// pipeline fan-out that runs on every tick.
package core
