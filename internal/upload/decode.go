// Package upload loads batches of IDS events, either by parsing a local
// file or through the remote upload endpoint.
package upload

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"sentinel/internal/logger"
	"sentinel/pkg/models"
)

const maxLineBytes = 16 * 1024 * 1024

// Decode parses a JSON array of events or a JSON-lines stream. Stats events
// and non-object entries are skipped; malformed lines are skipped in
// JSON-lines mode.
func Decode(r io.Reader) ([]models.RawEvent, error) {
	br := bufio.NewReader(r)
	first, err := firstByte(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if first == '[' {
		return decodeArray(br)
	}
	return decodeLines(br)
}

// DecodeFile opens path and decodes it.
func DecodeFile(path string) ([]models.RawEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}

func decodeArray(r io.Reader) ([]models.RawEvent, error) {
	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	out := make([]models.RawEvent, 0, len(items))
	for _, item := range items {
		if raw, ok := decodeObject(item); ok {
			out = append(out, raw)
		}
	}
	return out, nil
}

func decodeLines(r io.Reader) ([]models.RawEvent, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var out []models.RawEvent
	skipped := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		raw, ok := decodeObject(line)
		if !ok {
			skipped++
			continue
		}
		out = append(out, raw)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("scan upload: %w", err)
	}
	if skipped > 0 {
		logger.Debugf("Skipped %d unusable lines in upload", skipped)
	}
	return out, nil
}

func decodeObject(data []byte) (models.RawEvent, bool) {
	var raw models.RawEvent
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil, false
	}
	if raw.FirstString("event_type") == "stats" {
		return nil, false
	}
	return raw, true
}
