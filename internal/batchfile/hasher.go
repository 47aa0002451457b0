package batchfile

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// HashFile returns the lowercase hexadecimal SHA-256 digest of the entire
// contents of filePath. The digest is recorded at batch creation and
// re-checked on resume to detect an edited batch file.
func HashFile(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
