// Package triplet implements the "volume-lesson-day" selector family shared
// by the ezoe and stmn1 sources. A selector string looks like "2-1-5":
// volume 2, lesson 1, day 5, with day always in 1..7 (週一..主日).
package triplet

import (
	"fmt"
	"strconv"
	"strings"
)

// Selector is the structured form of a volume-lesson-day selector.
type Selector struct {
	Volume int
	Lesson int
	Day    int
}

// Parse validates and decomposes a selector string.
func Parse(selector string) (Selector, error) {
	parts := strings.Split(strings.TrimSpace(selector), "-")
	if len(parts) != 3 {
		return Selector{}, fmt.Errorf("invalid selector: %s", selector)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Selector{}, fmt.Errorf("invalid selector: %s", selector)
		}
		nums[i] = n
	}
	sel := Selector{Volume: nums[0], Lesson: nums[1], Day: nums[2]}
	if sel.Day < 1 || sel.Day > 7 {
		return Selector{}, fmt.Errorf("selector day must be 1..7: %s", selector)
	}
	if sel.Volume <= 0 || sel.Lesson <= 0 {
		return Selector{}, fmt.Errorf("selector components must be positive: %s", selector)
	}
	return sel, nil
}

// Format is the inverse of Parse: Format(Parse(s)) == s for every valid s.
func Format(sel Selector) (string, error) {
	if sel.Day < 1 || sel.Day > 7 {
		return "", fmt.Errorf("day must be 1..7, got %d", sel.Day)
	}
	if sel.Volume <= 0 || sel.Lesson <= 0 {
		return "", fmt.Errorf("volume and lesson must be positive, got %d-%d", sel.Volume, sel.Lesson)
	}
	return sel.String(), nil
}

func (s Selector) String() string {
	return fmt.Sprintf("%d-%d-%d", s.Volume, s.Lesson, s.Day)
}

// Advance returns the selector for the next day: day increments 1..7,
// rolling into day 1 of the next lesson past day 7.
func (s Selector) Advance() Selector {
	s.Day++
	if s.Day > 7 {
		s.Day = 1
		s.Lesson++
	}
	return s
}

// Previous is the inverse of Advance, except at the very start of lesson 1:
// the lesson clamps at 1 instead of going to zero, so Previous of "1-1-1" is
// "1-1-7" and Advance(Previous("1-1-1")) is "1-2-1", not "1-1-1". Existing
// schedules depend on this exact clamping; do not change it.
func (s Selector) Previous() Selector {
	s.Day--
	if s.Day < 1 {
		s.Day = 7
		if s.Lesson > 1 {
			s.Lesson--
		}
	}
	return s
}

// Advance is the string form of Selector.Advance.
func Advance(selector string) (string, error) {
	sel, err := Parse(selector)
	if err != nil {
		return "", err
	}
	return sel.Advance().String(), nil
}

// Previous is the string form of Selector.Previous.
func Previous(selector string) (string, error) {
	sel, err := Parse(selector)
	if err != nil {
		return "", err
	}
	return sel.Previous().String(), nil
}

// Validate reports whether the selector parses.
func Validate(selector string) bool {
	_, err := Parse(selector)
	return err == nil
}

// ExpandRange expands "start to end" within one volume and lesson. Ranges
// that span lessons are structural nonsense for this family and rejected.
func ExpandRange(start, end string) ([]string, error) {
	from, err := Parse(start)
	if err != nil {
		return nil, fmt.Errorf("invalid range: %w", err)
	}
	to, err := Parse(end)
	if err != nil {
		return nil, fmt.Errorf("invalid range: %w", err)
	}
	if from.Volume != to.Volume || from.Lesson != to.Lesson {
		return nil, fmt.Errorf("range must be within same volume and lesson, got: %s to %s", start, end)
	}
	if from.Day > to.Day {
		return nil, fmt.Errorf("range start day must be <= end day, got: %s to %s", start, end)
	}
	selectors := make([]string, 0, to.Day-from.Day+1)
	for day := from.Day; day <= to.Day; day++ {
		s, err := Format(Selector{Volume: from.Volume, Lesson: from.Lesson, Day: day})
		if err != nil {
			return nil, err
		}
		selectors = append(selectors, s)
	}
	return selectors, nil
}
