package config

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize is a size limit expressed in bytes. It unmarshals from
// human-readable strings like `10M` or `1.5GB`.
type ByteSize float64

const (
	_           = iota
	KB ByteSize = 1 << (10 * iota)
	MB
	GB
	TB
)

var (
	bytesPattern   = regexp.MustCompile(`(?i)^(-?\d+(?:\.\d+)?)([KMGT]B?|B)$`)
	errInvalidSize = errors.New("wrong size format: must be a positive number with a unit of measurement like M, MB, G, GB, T or TB")
)

// Bytes returns the size as an int64 byte count.
func (ds ByteSize) Bytes() int64 {
	return int64(ds)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (ds *ByteSize) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	parts := bytesPattern.FindStringSubmatch(strings.TrimSpace(s))
	if len(parts) < 3 {
		return errInvalidSize
	}

	value, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || value <= 0 {
		return errInvalidSize
	}

	unit := strings.ToUpper(parts[2])
	switch unit[:1] {
	case "T":
		*ds = ByteSize(value) * TB
	case "G":
		*ds = ByteSize(value) * GB
	case "M":
		*ds = ByteSize(value) * MB
	case "K":
		*ds = ByteSize(value) * KB
	case "B":
		*ds = ByteSize(value)
	}

	return nil
}
