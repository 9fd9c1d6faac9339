// Package pipeline orchestrates one folder run: discovery, per-clip motion
// classification on a bounded worker pool, deletion of static clips in
// enumeration order, concatenation of the survivors, and the run summary,
// YAML report and metrics export.
//
// Classification for every clip finishes before anything is deleted, so the
// concatenator only ever sees the final survivor set.
package pipeline
