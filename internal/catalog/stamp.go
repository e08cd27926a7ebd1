package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ContentStamp derives a version stamp from the caller-visible content of a
// descriptor. Any existing VersionStamp is ignored. Map keys are marshalled in
// sorted order, so equal content always yields the same stamp.
func ContentStamp(d TargetDescriptor) (string, error) {
	d.VersionStamp = ""
	data, err := yaml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("hash descriptor: %w", err)
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:8]), nil
}
