package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

const (
	recordBatch uint8 = 1
)

const (
	opPut    uint8 = 1
	opDelete uint8 = 2
)

// Header (17 bytes) = Record(1) + Seq(8) + Length(4) + CRC32(4)
const headerSize = 17

var crcTable = crc32.MakeTable(crc32.Castagnoli)

type journal struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

func openJournal(path string, bufferSize int) (*journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	if bufferSize <= 0 {
		bufferSize = 4096
	}
	return &journal{
		file:   f,
		writer: bufio.NewWriterSize(f, bufferSize),
	}, nil
}

func (j *journal) Append(record uint8, seq uint64, data []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	header := make([]byte, headerSize)
	header[0] = record
	binary.LittleEndian.PutUint64(header[1:], seq)
	binary.LittleEndian.PutUint32(header[9:], uint32(len(data)))
	binary.LittleEndian.PutUint32(header[13:], crc32.Checksum(data, crcTable))

	if _, err := j.writer.Write(header); err != nil {
		return err
	}
	if _, err := j.writer.Write(data); err != nil {
		return err
	}
	return nil
}

// Flush moves buffered records to the OS.
func (j *journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writer.Flush()
}

// Sync flushes and fsyncs.
func (j *journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Sync()
}

func (j *journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	if err := j.file.Sync(); err != nil {
		return err
	}
	return j.file.Close()
}

// replayJournal reads every record and calls fn. It returns the length of the
// valid part of the file; a record cut short by a crash ends the replay and
// torn is true. A checksum mismatch is an error.
func replayJournal(path string, fn func(record uint8, seq uint64, data []byte) error) (valid int64, torn bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, 1024*1024)
	header := make([]byte, headerSize)

	for {
		_, err := io.ReadFull(reader, header)
		if errors.Is(err, io.EOF) {
			return valid, false, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return valid, true, nil
		}
		if err != nil {
			return valid, false, err
		}

		record := header[0]
		seq := binary.LittleEndian.Uint64(header[1:9])
		length := binary.LittleEndian.Uint32(header[9:13])
		expectedCRC := binary.LittleEndian.Uint32(header[13:17])

		data := make([]byte, length)
		if _, err := io.ReadFull(reader, data); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return valid, true, nil
			}
			return valid, false, err
		}

		if actualCRC := crc32.Checksum(data, crcTable); actualCRC != expectedCRC {
			return valid, false, fmt.Errorf("journal corrupted at record %d: expected crc %x, got %x", seq, expectedCRC, actualCRC)
		}

		if err := fn(record, seq, data); err != nil {
			return valid, false, err
		}
		valid += int64(headerSize) + int64(length)
	}
}

type op struct {
	kind  uint8
	key   []byte
	value []byte
}

// encodeOps lays out each op as Kind(1) + uvarint key length + key and, for
// puts, uvarint value length + value.
func encodeOps(ops []op) []byte {
	size := 0
	for _, o := range ops {
		size += 1 + 2*binary.MaxVarintLen32 + len(o.key) + len(o.value)
	}
	buf := make([]byte, 0, size)
	for _, o := range ops {
		buf = append(buf, o.kind)
		buf = binary.AppendUvarint(buf, uint64(len(o.key)))
		buf = append(buf, o.key...)
		if o.kind == opPut {
			buf = binary.AppendUvarint(buf, uint64(len(o.value)))
			buf = append(buf, o.value...)
		}
	}
	return buf
}

func decodeOps(data []byte) ([]op, error) {
	ops := []op{}
	read := func() ([]byte, error) {
		n, w := binary.Uvarint(data)
		if w <= 0 || uint64(len(data)-w) < n {
			return nil, errors.New("bad length")
		}
		b := data[w : w+int(n)]
		data = data[w+int(n):]
		return b, nil
	}
	for len(data) > 0 {
		o := op{kind: data[0]}
		data = data[1:]
		key, err := read()
		if err != nil {
			return nil, fmt.Errorf("decode key: %w", err)
		}
		o.key = key
		switch o.kind {
		case opPut:
			value, err := read()
			if err != nil {
				return nil, fmt.Errorf("decode value: %w", err)
			}
			o.value = value
		case opDelete:
		default:
			return nil, fmt.Errorf("unknown op %d", o.kind)
		}
		ops = append(ops, o)
	}
	return ops, nil
}

func startBackgroundFlusher(j *journal, interval time.Duration) chan struct{} {
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := j.Sync(); err != nil {
					slog.Error("journal sync", "file", j.file.Name(), "error", err)
				}
			case <-stop:
				return
			}
		}
	}()

	return stop
}
