package fileops

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// duplicatePattern matches stems with a _duplicate or _duplicate_N suffix.
var duplicatePattern = regexp.MustCompile(`^(.+)_duplicate(?:_(\d+))?$`)

// PairNames holds matching image and label filenames.
type PairNames struct {
	Image string
	Label string
}

// FreePairNames picks a stem that is free for the image in imagesDir and, when
// withLabel is set, for the .txt label in labelsDir, so an image and its label
// keep sharing a stem after a rename.
func FreePairNames(imagesDir, labelsDir, imageName string, withLabel bool) PairNames {
	ext := filepath.Ext(imageName)
	stem := FreeStem(strings.TrimSuffix(imageName, ext), func(candidate string) bool {
		if Exists(filepath.Join(imagesDir, candidate+ext)) {
			return false
		}
		if withLabel && Exists(filepath.Join(labelsDir, candidate+".txt")) {
			return false
		}
		return true
	})

	names := PairNames{Image: stem + ext}
	if withLabel {
		names.Label = stem + ".txt"
	}
	return names
}

// FreeStem returns stem if free(stem) holds, otherwise the first free
// duplicate-suffixed variant.
func FreeStem(stem string, free func(candidate string) bool) string {
	if free(stem) {
		return stem
	}

	base := stem
	next := 0
	if m := duplicatePattern.FindStringSubmatch(stem); m != nil {
		base = m[1]
		next = 2
		if m[2] != "" {
			n, _ := strconv.Atoi(m[2])
			next = n + 1
		}
	}

	if next == 0 {
		candidate := base + "_duplicate"
		if free(candidate) {
			return candidate
		}
		next = 2
	}

	for n := next; ; n++ {
		candidate := base + "_duplicate_" + strconv.Itoa(n)
		if free(candidate) {
			return candidate
		}
	}
}
