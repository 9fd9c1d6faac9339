// Package video defines the frame, clip and codec types shared by the
// decoder, encoder, motion classifier and concatenator, along with the
// small interfaces those components use to open clips and create writers.
//
// Frames are packed BGR24. Implementations backed by ffmpeg live in the
// ffmpeg package; tests supply in-memory implementations.
package video
