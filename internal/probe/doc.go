// Package probe runs ffprobe against a clip and turns its JSON output into
// the geometry, frame rate and frame count the classifier and concatenator
// need. A single JSON call per clip covers everything.
package probe
