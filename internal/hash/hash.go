package hash

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// chunkSize is the buffer used for streaming file contents, so hashing never
// loads a whole video into memory.
const chunkSize = 64 * 1024

// File computes the 64-bit content hash of a file, streamed in 64 KiB
// chunks, and returns it as 16 lowercase hex digits.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %q for hashing: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, chunkSize)); err != nil {
		return "", fmt.Errorf("failed to hash %q: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
