// Package concat stitches surviving clips into one output file in recording
// order and runs an optional secondary compression pass over the result.
package concat
