// Package motion decides whether a clip contains real visual motion.
//
// The Differencer reduces a pair of frames to a changed-pixel count and a
// changed-pixel ratio after masking the timestamp overlay, converting to
// luminance, blurring with a 21×21 Gaussian, binarizing at 25 and dilating
// twice. The Classifier samples roughly twenty frames across a clip, compares
// each against the previously compared one, and declares motion as soon as
// both the pixel-count and the ratio threshold are exceeded.
package motion
