package database

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"
)

const (
	CommandCreateTable = "create_table"
	CommandDropTable   = "drop_table"
)

type Command struct {
	Name      string         `json:"name"`
	Uuid      string         `json:"uuid"`
	Timestamp int64          `json:"timestamp"`
	Payload   jsontext.Value `json:"payload"`
}

type dropTableCommand struct {
	Name string `json:"name"`
}

// catalog is an append-only journal of table definition commands.
type catalog struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

func openCatalog(filename string) (*catalog, error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return &catalog{
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

func (c *catalog) append(name string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	command := &Command{
		Name:      name,
		Uuid:      uuid.New().String(),
		Timestamp: time.Now().UnixNano(),
		Payload:   p,
	}

	if err := json.MarshalWrite(c.writer, command); err != nil {
		return err
	}
	if err := c.writer.WriteByte('\n'); err != nil {
		return err
	}
	if err := c.writer.Flush(); err != nil {
		return err
	}
	return c.file.Sync()
}

func (c *catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.writer.Flush(); err != nil {
		return err
	}
	return c.file.Close()
}

// replayCatalog calls fn for every command in filename. A missing file is an
// empty catalog.
func replayCatalog(filename string, fn func(command *Command) error) error {
	f, err := os.Open(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := jsontext.NewDecoder(bufio.NewReader(f))
	for {
		command := &Command{}
		err := json.UnmarshalDecode(decoder, command)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			slog.Warn("ignoring truncated catalog command", "file", filename)
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode catalog command: %w", err)
		}
		if err := fn(command); err != nil {
			return err
		}
	}
}
