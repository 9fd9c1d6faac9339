package naming

import (
	"path/filepath"
)

// TempSuffix is appended to the output path while the compression pass runs.
const TempSuffix = ".temp.mp4"

// OutputPath resolves the concatenated output for folder. Absolute names are
// used as-is; relative names resolve inside folder.
//
//	OutputPath("/cams/0812", "concatenated_output.mp4") = /cams/0812/concatenated_output.mp4
func OutputPath(folder, name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(folder, name)
}

// TempPath returns the sibling used to hold the first-pass output during
// compression.
func TempPath(output string) string {
	return output + TempSuffix
}
