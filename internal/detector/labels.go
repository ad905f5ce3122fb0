package detector

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tphakala/motionsort/internal/errors"
)

// Detection is one object line of a label file.
type Detection struct {
	ClassID    int
	Confidence float64 // 0 when the file was written without --save-conf
}

// Name returns the COCO name of the class.
func (d Detection) Name() string {
	return ClassName(d.ClassID)
}

// cocoNames covers the ids motionsort asks the detector for.
var cocoNames = map[int]string{
	0:  "person",
	1:  "bicycle",
	2:  "car",
	3:  "motorcycle",
	5:  "bus",
	7:  "truck",
	14: "bird",
	15: "cat",
	16: "dog",
	17: "horse",
	18: "sheep",
	19: "cow",
	20: "elephant",
	21: "bear",
	22: "zebra",
	23: "giraffe",
}

// ClassName maps a COCO class id to its name, or "class_<id>" when unknown.
func ClassName(id int) string {
	if name, ok := cocoNames[id]; ok {
		return name
	}
	return "class_" + strconv.Itoa(id)
}

// ParseLabelFile reads yolo label lines, "class cx cy w h [conf]". Blank lines are ignored.
func ParseLabelFile(r io.Reader) ([]Detection, error) {
	var out []Detection
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 5 && len(fields) != 6 {
			return out, labelError(fmt.Errorf("line %d: expected 5 or 6 fields, got %d", lineNo, len(fields)))
		}

		id, err := strconv.Atoi(fields[0])
		if err != nil || id < 0 {
			return out, labelError(fmt.Errorf("line %d: invalid class id %q", lineNo, fields[0]))
		}

		d := Detection{ClassID: id}
		if len(fields) == 6 {
			conf, err := strconv.ParseFloat(fields[5], 64)
			if err != nil {
				return out, labelError(fmt.Errorf("line %d: invalid confidence %q", lineNo, fields[5]))
			}
			d.Confidence = conf
		}
		out = append(out, d)
	}
	if err := sc.Err(); err != nil {
		return out, labelError(err)
	}
	return out, nil
}

// Summarize renders detections as "dog 0.91, person 0.64" in file order.
func Summarize(ds []Detection) string {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		if d.Confidence > 0 {
			parts = append(parts, fmt.Sprintf("%s %.2f", d.Name(), d.Confidence))
		} else {
			parts = append(parts, d.Name())
		}
	}
	return strings.Join(parts, ", ")
}

func labelError(err error) error {
	return errors.New(err).
		Component("detector").
		Category(errors.CategoryFileParsing).
		Context("operation", "parse_label_file").
		Build()
}
