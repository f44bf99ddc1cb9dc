// Package schemas embeds the JSON Schemas shipped with jobpulse so that
// binaries can validate documents without locating files on disk.
package schemas

import "embed"

// Names of the embedded schema files.
const (
	Rules                = "rules.schema.json"
	ExtractedApplication = "extracted_application.schema.json"
)

//go:embed *.schema.json
var files embed.FS

// Read returns the raw content of an embedded schema.
func Read(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
