package tle

import "fmt"

// MissingLinesError reports a record that is not exactly three lines long.
type MissingLinesError struct {
	Expected int
	Actual   int
}

func (e *MissingLinesError) Error() string {
	return fmt.Sprintf("tle: expected %d lines, got %d", e.Expected, e.Actual)
}

// FormatError reports a data line shorter than the fixed-column layout requires.
type FormatError struct {
	Line   int // 1 or 2
	Length int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("tle: line %d is %d characters, need at least %d", e.Line, e.Length, lineLength)
}

// ChecksumError reports a modulo-10 checksum mismatch on a data line.
type ChecksumError struct {
	Line     int // 1 or 2
	Expected int // digit in column 69
	Actual   int // computed sum mod 10
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("tle: line %d checksum mismatch: expected %d, computed %d", e.Line, e.Expected, e.Actual)
}

// FieldError reports a fixed-column field that failed numeric parsing.
type FieldError struct {
	Field string
	Raw   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("tle: invalid %s field %q", e.Field, e.Raw)
}

// EccentricityError reports an eccentricity outside [0, 1).
type EccentricityError struct {
	Value float64
}

func (e *EccentricityError) Error() string {
	return fmt.Sprintf("tle: eccentricity %v out of range [0, 1)", e.Value)
}
