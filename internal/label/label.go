// Package label parses YOLO-format label files for yoloset.
//
// A label file holds an optional metadata comment followed by one detection
// per line:
//
//	# Resolution: 2560x1440, Map: de_dust2, Time: 1764637338
//	0 0.512 0.433 0.041 0.118
//	1 0.210 0.610 0.037 0.101
//
// Malformed lines are skipped and counted, never fatal.
package label

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"yoloset/internal/dataset"
)

// ErrNotFound is returned when an image has no label file.
var ErrNotFound = errors.New("label file not found")

// Detection is one annotated bounding box with normalised centre and size.
type Detection struct {
	ClassID int
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

// Info is the parsed content of one label file.
type Info struct {
	Detections []Detection
	Resolution string
	Map        string
	Time       *time.Time
	Skipped    int // malformed lines ignored while parsing
}

// ParseError describes a malformed line.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Parse reads label content. Malformed detection lines are skipped; the
// returned slice lists them for callers that want to report them.
func Parse(r io.Reader) (*Info, []ParseError, error) {
	info := &Info{}
	var problems []ParseError

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			parseHeader(strings.TrimPrefix(line, "#"), info)
			continue
		}

		det, err := parseDetection(line)
		if err != nil {
			info.Skipped++
			problems = append(problems, ParseError{Line: lineNo, Reason: err.Error()})
			continue
		}
		info.Detections = append(info.Detections, det)
	}
	if err := scanner.Err(); err != nil {
		return nil, problems, err
	}
	return info, problems, nil
}

// ParseFile parses the label at path. A missing file yields ErrNotFound.
func ParseFile(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	info, _, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read label %s: %w", path, err)
	}
	return info, nil
}

// parseHeader extracts "Key: value" pairs from the metadata comment.
func parseHeader(header string, info *Info) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Resolution":
			info.Resolution = value
		case "Map":
			info.Map = value
		case "Time":
			if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
				t := time.Unix(secs, 0).UTC()
				info.Time = &t
			}
		}
	}
}

func parseDetection(line string) (Detection, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return Detection{}, fmt.Errorf("expected 5 fields, got %d", len(fields))
	}

	classID, err := strconv.Atoi(fields[0])
	if err != nil || classID < 0 {
		return Detection{}, fmt.Errorf("invalid class id %q", fields[0])
	}

	var vals [4]float64
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return Detection{}, fmt.Errorf("invalid coordinate %q", fields[i+1])
		}
		vals[i] = v
	}

	return Detection{
		ClassID: classID,
		XCenter: vals[0],
		YCenter: vals[1],
		Width:   vals[2],
		Height:  vals[3],
	}, nil
}

// FileLookup resolves an image's label through the dataset directory
// convention and parses it.
type FileLookup struct{}

// Lookup returns the parsed label for imagePath, or ErrNotFound.
func (FileLookup) Lookup(imagePath string) (*Info, error) {
	return ParseFile(dataset.LabelPathFor(imagePath))
}
