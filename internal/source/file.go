// Package source reads raw messages exported from a device or provider.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hsh7097/MoneyTalk-sub002/internal/common"
	"github.com/hsh7097/MoneyTalk-sub002/internal/model"
	"github.com/hsh7097/MoneyTalk-sub002/internal/service"
)

// maxLineSize bounds a single JSON-lines record.
const maxLineSize = 1 << 20

// FileSource reads messages from a JSON array or a JSON-lines file of
// {id, address, body, timestamp} records.
type FileSource struct {
	path string
}

var _ service.MessageSource = (*FileSource)(nil)

// NewFileSource returns a source for path. "-" reads standard input.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Messages loads every record. Records with an empty body are dropped.
func (s *FileSource) Messages(ctx context.Context) ([]model.Message, error) {
	if s.path == "-" {
		return Decode(ctx, os.Stdin)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	msgs, err := Decode(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return msgs, nil
}

// Decode reads a JSON array or JSON lines from r, detected from the first
// non-space byte.
func Decode(ctx context.Context, r io.Reader) ([]model.Message, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var msgs []model.Message
	if first == '[' {
		if err := json.NewDecoder(br).Decode(&msgs); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrMalformedInput, err)
		}
	} else {
		msgs, err = decodeLines(ctx, br)
		if err != nil {
			return nil, err
		}
	}

	out := msgs[:0]
	for i, m := range msgs {
		if strings.TrimSpace(m.Body) == "" {
			continue
		}
		if m.ID == "" {
			m.ID = fmt.Sprintf("%d", i+1)
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeLines(ctx context.Context, r io.Reader) ([]model.Message, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var msgs []model.Message
	line := 0
	for scanner.Scan() {
		line++
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var m model.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", common.ErrMalformedInput, line, err)
		}
		msgs = append(msgs, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case 0xEF:
			// UTF-8 byte order mark
			if _, err := br.Discard(2); err != nil {
				return 0, err
			}
			continue
		}
		return b, br.UnreadByte()
	}
}
