package tle

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	recordLines = 3
	lineLength  = 69
)

// ParseSet parses a single three-line TLE record (name, line 1, line 2) into
// an ElementSet. Construction is all-or-nothing: any validation failure
// returns a typed error and no partial record.
//
// now is the reference time for expanding the two-digit epoch year: the
// four-digit year is chosen inside a sliding ±50-year window centered on
// now's year. Interpretation of the same record therefore shifts with the
// reference time; callers wanting reproducible parses must pin now.
func ParseSet(text string, now time.Time) (*ElementSet, error) {
	lines := splitRecord(text)
	if len(lines) != recordLines {
		return nil, &MissingLinesError{Expected: recordLines, Actual: len(lines)}
	}

	name := strings.TrimSpace(lines[0])
	line1 := lines[1]
	line2 := lines[2]

	if len(line1) < lineLength {
		return nil, &FormatError{Line: 1, Length: len(line1)}
	}
	if len(line2) < lineLength {
		return nil, &FormatError{Line: 2, Length: len(line2)}
	}

	if err := verifyChecksum(1, line1); err != nil {
		return nil, err
	}
	if err := verifyChecksum(2, line2); err != nil {
		return nil, err
	}

	set := &ElementSet{
		Name:           name,
		IntlDesignator: strings.TrimSpace(line1[9:17]),
	}

	var err error
	if set.CatalogNumber, err = parseIntField("catalog number", line1[2:7]); err != nil {
		return nil, err
	}

	epochYear, err := parseIntField("epoch year", line1[18:20])
	if err != nil {
		return nil, err
	}
	if set.EpochDay, err = parseFloatField("epoch day", line1[20:32]); err != nil {
		return nil, err
	}
	if set.MeanMotionDot, err = parseFloatField("mean motion derivative", line1[33:43]); err != nil {
		return nil, err
	}
	if set.MeanMotionDDot, err = parseSciField("mean motion second derivative", line1[44:52]); err != nil {
		return nil, err
	}
	if set.Bstar, err = parseSciField("drag term", line1[53:61]); err != nil {
		return nil, err
	}

	if set.InclinationDeg, err = parseFloatField("inclination", line2[8:16]); err != nil {
		return nil, err
	}
	if set.RAANDeg, err = parseFloatField("right ascension", line2[17:25]); err != nil {
		return nil, err
	}
	if set.Eccentricity, err = parseEccentricity(line2[26:33]); err != nil {
		return nil, err
	}
	if set.ArgPerigeeDeg, err = parseFloatField("argument of perigee", line2[34:42]); err != nil {
		return nil, err
	}
	if set.MeanAnomalyDeg, err = parseFloatField("mean anomaly", line2[43:51]); err != nil {
		return nil, err
	}
	if set.MeanMotion, err = parseFloatField("mean motion", line2[52:63]); err != nil {
		return nil, err
	}
	if set.RevolutionsAtEpoch, err = parseIntField("revolution number", line2[63:68]); err != nil {
		return nil, err
	}

	if set.Eccentricity >= 1.0 {
		return nil, &EccentricityError{Value: set.Eccentricity}
	}

	set.EpochYear = expandYear(epochYear, now)
	set.Epoch = epochTime(set.EpochYear, set.EpochDay)

	return set, nil
}

// splitRecord breaks raw text into lines, dropping carriage returns and a
// single trailing empty line from a final newline. Interior blank lines are
// preserved so a malformed record still fails the line count check.
func splitRecord(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// verifyChecksum validates the modulo-10 line checksum: ASCII digits in
// columns 1-68 sum at face value, '-' counts as 1, everything else is
// ignored; the total mod 10 must match the digit in column 69.
func verifyChecksum(lineNo int, line string) error {
	sum := 0
	for i := 0; i < lineLength-1; i++ {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	sum %= 10

	expected := -1
	if c := line[lineLength-1]; c >= '0' && c <= '9' {
		expected = int(c - '0')
	}
	if expected != sum {
		return &ChecksumError{Line: lineNo, Expected: expected, Actual: sum}
	}
	return nil
}

func parseIntField(field, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &FieldError{Field: field, Raw: raw}
	}
	return n, nil
}

func parseFloatField(field, raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &FieldError{Field: field, Raw: raw}
	}
	return f, nil
}

// parseEccentricity decodes the line-2 eccentricity digits, which carry an
// implicit leading "0.".
func parseEccentricity(raw string) (float64, error) {
	f, err := strconv.ParseFloat("0."+strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &FieldError{Field: "eccentricity", Raw: raw}
	}
	return f, nil
}

// parseSciField decodes TLE scientific notation (±XXXXX±Y): an optional
// mantissa sign, mantissa digits read as "0.mantissa", and a trailing
// signed single-digit exponent. A blank or all-zero field is exactly 0.
func parseSciField(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}

	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}

	if len(s) < 2 {
		return 0, &FieldError{Field: field, Raw: raw}
	}

	expSign := 1
	switch s[len(s)-2] {
	case '-':
		expSign = -1
	case '+':
	default:
		return 0, &FieldError{Field: field, Raw: raw}
	}

	expDigit := s[len(s)-1]
	if expDigit < '0' || expDigit > '9' {
		return 0, &FieldError{Field: field, Raw: raw}
	}
	exp := expSign * int(expDigit-'0')

	mantissaStr := s[:len(s)-2]
	mantissa, err := strconv.ParseUint(mantissaStr, 10, 64)
	if err != nil {
		return 0, &FieldError{Field: field, Raw: raw}
	}

	value := sign * float64(mantissa) / math.Pow(10, float64(len(mantissaStr)))
	return value * math.Pow(10, float64(exp)), nil
}

// expandYear resolves a two-digit TLE epoch year inside a ±50-year window
// centered on the reference year.
func expandYear(twoDigit int, now time.Time) int {
	year := (now.Year()/100)*100 + twoDigit
	if year > now.Year()+50 {
		year -= 100
	} else if year < now.Year()-50 {
		year += 100
	}
	return year
}

// epochTime resolves a TLE epoch (four-digit year, 1-based fractional day
// of year) to a UTC instant.
func epochTime(year int, dayOfYear float64) time.Time {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour)))
}
