// Package naming derives recording order from camera clip filenames and
// builds the output paths of a run.
//
// Clip stems look like 04M21S_1723482261: minutes and seconds into the
// recording hour followed by a Unix timestamp. Only the leading minutes and
// seconds are used for ordering; stems that do not match sort first.
package naming
