package process

import (
	"bytes"
	"errors"
	"io"
	"os"
)

const tailChunk = 4096

// readLastLine returns the last line of the file without its newline.
// Only the tail of the file is read; the chunk doubles until a line break
// is found or the start of the file is reached.
func readLastLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()
	if size == 0 {
		return "", nil
	}

	for chunk := int64(tailChunk); ; chunk *= 2 {
		off := max(size-chunk, 0)
		buf := make([]byte, size-off)
		n, err := f.ReadAt(buf, off)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		buf = bytes.TrimSuffix(buf[:n], []byte("\n"))
		if i := bytes.LastIndexByte(buf, '\n'); i >= 0 {
			return string(buf[i+1:]), nil
		}
		if off == 0 {
			return string(buf), nil
		}
	}
}
