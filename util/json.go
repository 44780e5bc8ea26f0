package util

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// MustMarshalJson marshals v into indented JSON for console output.
func MustMarshalJson(v interface{}) []byte {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logrus.WithError(err).Fatalf("Failed to marshal data to JSON, value = %+v", v)
	}

	return data
}
