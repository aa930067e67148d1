package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxExplanationLen bounds explanation text carried over from the model's
// free-text output.
const maxExplanationLen = 1000

// Extraction is a reading pulled out of a vision model response. Nil fields
// were reported as unreadable by the model (or could not be coerced).
type Extraction struct {
	Systolic    *int   `json:"systolic"`
	Diastolic   *int   `json:"diastolic"`
	Pulse       *int   `json:"pulse"`
	Comment     string `json:"comment,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// ParseError reports a model response that could not be shaped into a reading
// even after fallback extraction. It carries the original response text.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse vision response: %v", e.Err)
	}
	return "parse vision response: missing required fields"
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	reSystolic  = regexp.MustCompile(`(?i)SYS[:\s]*([0-9]{2,3})`)
	reDiastolic = regexp.MustCompile(`(?i)DIA[:\s]*([0-9]{2,3})`)
	rePulse     = regexp.MustCompile(`(?i)PUL[:\s]*([0-9]{2,3})`)
	reNumber    = regexp.MustCompile(`\b[0-9]{2,3}\b`)
)

// ExtractReading parses free-text model output into an Extraction.
//
// Primary path: the content of a fenced code block (a ```json fence is
// preferred over the first generic fence; with no fence the whole text is the
// candidate) is decoded as JSON, accepting both the flat shape
// {"systolic":..,"diastolic":..,"pulse":..} and the nested
// {"comment":..,"explanation":..,"data":{...}} shape. Numeric values are
// coerced to integers; explicit nulls mean the model could not read that value.
//
// Fallback path: when decoding fails or any required field was missing or
// non-numeric, the raw text is scanned for labeled SYS/DIA/PUL values, then
// for any three 2-3 digit numbers assigned positionally. The model formats
// logically equivalent answers in many ways; the two tiers exist to absorb
// that variance.
//
// A *ParseError is returned only when a required field was never observed
// (neither as a value nor as an explicit null) after both paths.
func ExtractReading(text string) (Extraction, error) {
	candidate, outside := splitFenced(text)

	var ext Extraction
	// seen tracks fields the model answered for, including explicit nulls.
	seen := map[string]bool{}

	var raw map[string]any
	decodeErr := json.Unmarshal([]byte(candidate), &raw)
	if decodeErr == nil {
		values := raw
		if data, ok := raw["data"].(map[string]any); ok {
			values = data
			if c, ok := raw["comment"].(string); ok {
				ext.Comment = c
			}
			if e, ok := raw["explanation"].(string); ok {
				ext.Explanation = e
			}
		} else {
			if e, ok := raw["explanation"].(string); ok {
				ext.Explanation = e
			}
		}
		ext.Systolic, seen["systolic"] = coerceInt(values, "systolic")
		ext.Diastolic, seen["diastolic"] = coerceInt(values, "diastolic")
		ext.Pulse, seen["pulse"] = coerceInt(values, "pulse")
	}

	if decodeErr != nil || !seen["systolic"] || !seen["diastolic"] || !seen["pulse"] {
		fallbackFill(text, &ext, seen)
	}

	if outside != "" && ext.Explanation == "" {
		if len(outside) > maxExplanationLen {
			outside = outside[:maxExplanationLen]
		}
		ext.Explanation = outside
	}

	if !seen["systolic"] || !seen["diastolic"] || !seen["pulse"] {
		err := decodeErr
		if err == nil {
			err = errors.New("missing required fields after fallback")
		}
		return Extraction{}, &ParseError{Text: text, Err: err}
	}
	return ext, nil
}

// splitFenced returns the candidate JSON text and any surrounding free text.
// Mirrors the fence handling the prompt asks the model for: prefer a ```json
// fence, fall back to the first generic fence, else use the whole text.
func splitFenced(text string) (candidate, outside string) {
	for _, marker := range []string{"```json", "```"} {
		if !strings.Contains(text, marker) {
			continue
		}
		head, tail, _ := strings.Cut(text, marker)
		if body, rest, closed := strings.Cut(tail, "```"); closed {
			return strings.TrimSpace(body), strings.TrimSpace(head + rest)
		}
		// Unterminated fence: everything after the marker is the candidate.
		return strings.TrimSpace(tail), strings.TrimSpace(head)
	}
	return strings.TrimSpace(text), ""
}

// coerceInt pulls key out of values as an integer. The bool reports whether
// the model answered for the field at all: true for numbers, numeric strings,
// and explicit nulls (nil value); false for absent keys and non-numeric junk.
func coerceInt(values map[string]any, key string) (*int, bool) {
	v, present := values[key]
	if !present {
		return nil, false
	}
	switch n := v.(type) {
	case nil:
		return nil, true
	case float64:
		i := int(n)
		return &i, true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return &i, true
		}
	case json.Number:
		if i, err := strconv.Atoi(n.String()); err == nil {
			return &i, true
		}
	}
	return nil, false
}

// fallbackFill scans raw text for labeled SYS/DIA/PUL values and, when fewer
// than three labels match, assigns any three 2-3 digit numbers positionally.
// Only fields without a value yet are filled.
func fallbackFill(text string, ext *Extraction, seen map[string]bool) {
	found := map[string]int{}
	for key, re := range map[string]*regexp.Regexp{
		"systolic":  reSystolic,
		"diastolic": reDiastolic,
		"pulse":     rePulse,
	} {
		if m := re.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[1])
			if err == nil {
				found[key] = n
			}
		}
	}

	if len(found) < 3 {
		nums := reNumber.FindAllString(text, -1)
		if len(nums) >= 3 {
			for i, key := range []string{"systolic", "diastolic", "pulse"} {
				if _, ok := found[key]; !ok {
					if n, err := strconv.Atoi(nums[i]); err == nil {
						found[key] = n
					}
				}
			}
		}
	}

	fields := map[string]**int{
		"systolic":  &ext.Systolic,
		"diastolic": &ext.Diastolic,
		"pulse":     &ext.Pulse,
	}
	for key, slot := range fields {
		v, ok := found[key]
		if !ok {
			continue
		}
		if *slot == nil {
			n := v
			*slot = &n
			seen[key] = true
		}
	}
}
