package fragdex

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// supportedExtensions are the workbook container formats the parser reads.
var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
}

// IsSupportedFile reports whether the path has a supported workbook
// extension.
func IsSupportedFile(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// ComputeFileHash returns the hex sha256 digest of the file's raw bytes.
// The digest is the identity used for change detection, so it must cover
// the container bytes rather than any parsed view of them.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
