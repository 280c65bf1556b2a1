package encoding

import (
	"bytes"
	"io"

	"gopkg.in/yaml.v2"
)

// LoadAndUnmarshalYAML decodes the YAML document at the specified path into
// value. Unknown fields are rejected and an empty document leaves value
// untouched.
func LoadAndUnmarshalYAML(path string, value interface{}) error {
	return LoadAndUnmarshal(path, func(data []byte) error {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.SetStrict(true)
		if err := decoder.Decode(value); err != nil && err != io.EOF {
			return err
		}
		return nil
	})
}
