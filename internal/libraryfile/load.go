// Package libraryfile reads a model.LibraryInput from a JSON file on disk.
// It is deliberately the thinnest possible adapter: library-source parsing
// (Rhythmbox XML, iTunes XML, whatever a real collaborator speaks) is a
// collaborator's job, so this package exists only to give the CLI
// *something* to load for local testing and scripted exports, not to be a
// serious library-source parser.
package libraryfile

import (
	"encoding/json"
	"fmt"
	"os"

	"rekordboxport/model"
)

// Load parses path as a JSON-encoded model.LibraryInput.
func Load(path string) (model.LibraryInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.LibraryInput{}, fmt.Errorf("read library file %s: %w", path, err)
	}
	var lib model.LibraryInput
	if err := json.Unmarshal(data, &lib); err != nil {
		return model.LibraryInput{}, fmt.Errorf("parse library file %s: %w", path, err)
	}
	return lib, nil
}
