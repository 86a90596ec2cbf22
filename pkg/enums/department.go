package enums

import "fmt"

// Department is one stage of the fixed production sequence.
type Department string

const (
	DepartmentReceived  Department = "received"
	DepartmentDesign    Department = "design"
	DepartmentMachining Department = "machining"
	DepartmentPaint     Department = "paint"
	DepartmentFinishing Department = "finishing"
	DepartmentQuality   Department = "quality"
	DepartmentShipping  Department = "shipping"
	// DepartmentCompleted is the terminal placement; orders moved here leave
	// the active pipeline but remain queryable.
	DepartmentCompleted Department = "completed"
)

// PipelineSequence is the ordered list of production stages. Completed is not
// part of the sequence; Advance from the last stage lands on it.
var PipelineSequence = []Department{
	DepartmentReceived,
	DepartmentDesign,
	DepartmentMachining,
	DepartmentPaint,
	DepartmentFinishing,
	DepartmentQuality,
	DepartmentShipping,
}

var validDepartments = append(append([]Department{}, PipelineSequence...), DepartmentCompleted)

// String implements fmt.Stringer.
func (d Department) String() string {
	return string(d)
}

// IsValid reports whether the value is a known Department.
func (d Department) IsValid() bool {
	for _, candidate := range validDepartments {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the department is the completed placement.
func (d Department) IsTerminal() bool {
	return d == DepartmentCompleted
}

// Index returns the position of the department in the pipeline sequence, or
// -1 for completed and unknown values.
func (d Department) Index() int {
	for i, candidate := range PipelineSequence {
		if candidate == d {
			return i
		}
	}
	return -1
}

// Next returns the department that follows d in the fixed sequence. The last
// pipeline stage advances to completed; completed has no successor.
func (d Department) Next() (Department, bool) {
	idx := d.Index()
	if idx < 0 {
		return "", false
	}
	if idx == len(PipelineSequence)-1 {
		return DepartmentCompleted, true
	}
	return PipelineSequence[idx+1], true
}

// PrecedesFinishing reports whether the department sits before finishing in
// the pipeline. Cut orders are hidden from these department views.
func (d Department) PrecedesFinishing() bool {
	idx := d.Index()
	return idx >= 0 && idx < DepartmentFinishing.Index()
}

// ParseDepartment converts raw input into a Department.
func ParseDepartment(value string) (Department, error) {
	for _, candidate := range validDepartments {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid department %q", value)
}
