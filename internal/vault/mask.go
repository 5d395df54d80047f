package vault

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ConfidentialityLevel controls whether secret values appear in log output.
// Levels are totally ordered: low < medium < high. A value requested at a
// given minimum tolerance is shown only when the configured level is at
// least that tolerance, otherwise a fixed placeholder is logged.
type ConfidentialityLevel int

// Confidentiality level constants.
const (
	// ConfidentialityLow masks everything but values tolerated at low.
	ConfidentialityLow ConfidentialityLevel = iota

	// ConfidentialityMedium additionally shows values tolerated at medium.
	ConfidentialityMedium

	// ConfidentialityHigh shows all values, including secret material.
	ConfidentialityHigh
)

// maskedValue replaces secret material in log output.
const maskedValue = "***"

// String returns the string representation of the level.
func (l ConfidentialityLevel) String() string {
	switch l {
	case ConfidentialityLow:
		return "low"
	case ConfidentialityMedium:
		return "medium"
	case ConfidentialityHigh:
		return "high"
	default:
		return fmt.Sprintf("confidentiality(%d)", int(l))
	}
}

// IsValid returns true if the level is one of the defined constants.
func (l ConfidentialityLevel) IsValid() bool {
	switch l {
	case ConfidentialityLow, ConfidentialityMedium, ConfidentialityHigh:
		return true
	default:
		return false
	}
}

// ParseConfidentialityLevel parses a level name.
func ParseConfidentialityLevel(s string) (ConfidentialityLevel, error) {
	switch s {
	case "low", "":
		return ConfidentialityLow, nil
	case "medium":
		return ConfidentialityMedium, nil
	case "high":
		return ConfidentialityHigh, nil
	default:
		return ConfidentialityLow, NewConfigurationError("logConfidentialityLevel",
			fmt.Sprintf("unknown confidentiality level: %q", s))
	}
}

// MaskWithTolerance returns value unmasked when the configured level l is at
// least minTolerance, and the masked placeholder otherwise. It is a pure
// function; masking never applies to returned values or propagated errors.
func (l ConfidentialityLevel) MaskWithTolerance(value string, minTolerance ConfidentialityLevel) string {
	if l >= minTolerance {
		return value
	}
	return maskedValue
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *ConfidentialityLevel) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseConfidentialityLevel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (l ConfidentialityLevel) MarshalYAML() (interface{}, error) {
	return l.String(), nil
}
