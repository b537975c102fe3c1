package utils

import (
	"strconv"

	"github.com/buger/jsonparser"
)

func JsonExtract(json []byte, key string) (string, error) {
	value, _, _, err := jsonparser.Get(json, key)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func JsonExtractStringOrDefault(json []byte, key string, def string) string {
	value, _, _, err := jsonparser.Get(json, key)
	if err != nil {
		return def
	}
	return string(value)
}

func JsonExtractIntOrDefault(json []byte, key string, def int) int {
	value, _, _, err := jsonparser.Get(json, key)
	if err != nil {
		return def
	}
	i, err := strconv.Atoi(string(value))
	if err != nil {
		return def
	}
	return i
}

// JsonHasKey reports whether the top-level object contains key.
func JsonHasKey(json []byte, key string) bool {
	_, dataType, _, err := jsonparser.Get(json, key)
	return err == nil && dataType != jsonparser.NotExist
}

// JsonIsObject reports whether json is a well-formed object.
func JsonIsObject(json []byte) bool {
	err := jsonparser.ObjectEach(json, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		return nil
	})
	return err == nil
}
