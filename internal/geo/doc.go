// Package geo defines the position and permission types the recorder
// consumes from a device location source.
//
// The package deliberately models "no current position" as a first-class
// value (Position with Known == false) rather than a nil pointer. Every
// consumer must branch on Known explicitly; there is no way to read
// coordinates out of an unknown position by accident.
package geo
