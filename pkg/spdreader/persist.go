package spdreader

import (
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactName is the file name a slot's image is persisted under.
func ArtifactName(slot int) string {
	return fmt.Sprintf("dimm%d.spd", slot)
}

// Persist writes exactly Length raw bytes of a valid image to dir. The file
// is replaced atomically, so repeated calls leave one complete copy.
func Persist(dir string, img SpdImage) (string, error) {
	if !img.Valid {
		return "", invalidImagef("slot %d is not valid", img.Slot)
	}
	if img.Length != LegacyImageSize && img.Length != MaxImageSize {
		return "", invalidImagef("slot %d: length %d", img.Slot, img.Length)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, ArtifactName(img.Slot))
	tmp, err := os.CreateTemp(dir, ".dimm*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(img.Bytes()); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return path, nil
}

// PersistAll writes every valid image of an acquisition and returns the paths.
func PersistAll(dir string, acq Acquisition) ([]string, error) {
	var paths []string
	for _, img := range acq.Valid() {
		path, err := Persist(dir, img)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// LoadImage reads a persisted artifact back as a valid image for slot.
func LoadImage(path string, slot int) (SpdImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SpdImage{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	img, err := NewImage(slot, data)
	if err != nil {
		return SpdImage{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
