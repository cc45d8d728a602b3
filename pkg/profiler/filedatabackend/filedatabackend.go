package filedatabackend

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/dkorittki/imgprof/pkg/profiler/databackend"
	"github.com/pkg/errors"
)

// FileDataBackend stores results as JSON encoded lines in a file
// and implements the DataBackend interface.
type FileDataBackend struct {
	mu      sync.Mutex
	encoder *json.Encoder
	file    *os.File
	writer  *bufio.Writer
}

// New creates a new FileDataBackend and opens a new
// filehandle on the file specified by filepath.
// If the file specified by filepath already exists,
// new data is appended at the end of the file.
func New(filepath string) (*FileDataBackend, error) {
	file, err := os.OpenFile(filepath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open result file")
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)

	return &FileDataBackend{encoder: encoder, file: file, writer: writer}, nil
}

// Store stores a result as json encoded data in a file
// and implements the Store method of the DataBackend interface.
func (b *FileDataBackend) Store(result *databackend.Result) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.encoder.Encode(result)
}

// Close flushes all data from io buffer and
// closes the filehandle. It implements the Close method from the
// DataBackend.
func (b *FileDataBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.writer.Flush(); err != nil {
		return err
	}

	return b.file.Close()
}
