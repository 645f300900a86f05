package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Byte size units.
const (
	B   Size = 1
	KiB      = 1024 * B
	MiB      = 1024 * KiB
	GiB      = 1024 * MiB
	TiB      = 1024 * GiB
)

// Size is a byte count written as "1048576", "512k", "50m" or "1.5g".
// Units are binary.
type Size int64

var sizeReg = regexp.MustCompile(`^([0-9]+)$|^([0-9.]+)\s*([bkmgt])i?b?$`)

// ParseSize returns the byte count of a human readable size.
func ParseSize(size string) (Size, error) {
	regRes := sizeReg.FindStringSubmatch(strings.ToLower(strings.TrimSpace(size)))
	switch {
	case len(regRes) == 0:
		return 0, fmt.Errorf("wrong size: %q", size)
	case regRes[1] != "":
		s, err := strconv.ParseInt(regRes[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("wrong size: %q: %w", size, err)
		}
		return Size(s), nil
	default:
		f, err := strconv.ParseFloat(regRes[2], 64)
		if err != nil {
			return 0, fmt.Errorf("wrong size: %q: %w", size, err)
		}
		switch regRes[3] {
		case "k":
			f *= float64(KiB)
		case "m":
			f *= float64(MiB)
		case "g":
			f *= float64(GiB)
		case "t":
			f *= float64(TiB)
		}
		return Size(f), nil
	}
}

func (s Size) String() string {
	switch {
	case s >= GiB && s%GiB == 0:
		return strconv.FormatInt(int64(s/GiB), 10) + "g"
	case s >= MiB && s%MiB == 0:
		return strconv.FormatInt(int64(s/MiB), 10) + "m"
	case s >= KiB && s%KiB == 0:
		return strconv.FormatInt(int64(s/KiB), 10) + "k"
	}
	return strconv.FormatInt(int64(s), 10)
}

// Decode implements envconfig.Decoder.
func (s *Size) Decode(value string) error {
	v, err := ParseSize(value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Size) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: size must be a scalar", value.Line)
	}
	return s.Decode(value.Value)
}

// MarshalYAML implements yaml.Marshaler.
func (s Size) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}
