package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/smazurov/camview/internal/events"
)

// ErrInvalidCameraID is returned for camera ids that cannot be streamed.
var ErrInvalidCameraID = errors.New("invalid camera id")

// ParseCameras trims, validates and de-duplicates camera ids, keeping the
// first occurrence order.
func ParseCameras(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		switch {
		case id == "":
			continue
		case id == events.AllCameras:
			return nil, fmt.Errorf("%w: %q is reserved for all cameras", ErrInvalidCameraID, id)
		case strings.ContainsAny(id, "/?#& "):
			return nil, fmt.Errorf("%w: %q", ErrInvalidCameraID, id)
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// ParseCameraList parses a comma separated list of camera ids.
func ParseCameraList(list string) ([]string, error) {
	return ParseCameras(splitList(list))
}

// LoadCameras reads daemon.cameras from a TOML file. It is the loader used
// when watching the config file for camera list changes.
func LoadCameras(path string) ([]string, error) {
	doc, err := readTOML(path)
	if err != nil {
		return nil, err
	}
	// Ids may be written as numbers or strings.
	var cameras []string
	setFieldValue(reflect.ValueOf(&cameras).Elem(), getNestedValue(doc, "daemon.cameras"))
	return ParseCameras(cameras)
}
