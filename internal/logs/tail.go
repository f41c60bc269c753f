package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// Query selects lines from an encodeflow log file.
type Query struct {
	// Lines is the number of trailing matches Last returns.
	Lines   int
	AssetID int64
	MediaID string
}

// Match reports whether line satisfies the asset and media filters. Both the
// console (asset_id=7) and JSON ("asset_id":7) encodings are recognised.
func (q Query) Match(line string) bool {
	if q.AssetID > 0 && !hasField(line, "asset_id", strconv.FormatInt(q.AssetID, 10)) {
		return false
	}
	if media := strings.TrimSpace(q.MediaID); media != "" && !hasField(line, "media_id", media) {
		return false
	}
	return true
}

func hasField(line, key, value string) bool {
	candidates := []string{
		key + "=" + value,
		key + "=" + strconv.Quote(value),
		`"` + key + `":` + value,
		`"` + key + `":"` + value + `"`,
	}
	for _, candidate := range candidates {
		for from := 0; from < len(line); {
			idx := strings.Index(line[from:], candidate)
			if idx < 0 {
				break
			}
			idx += from
			end := idx + len(candidate)
			before := idx == 0 || !isValueByte(line[idx-1])
			after := end == len(line) || !isValueByte(line[end])
			if before && after {
				return true
			}
			from = idx + 1
		}
	}
	return false
}

func isValueByte(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '-' || b == '_'
}

// Last returns up to q.Lines trailing matching lines and the offset just past
// the end of the file. A missing file yields no lines and offset 0.
func Last(path string, q Query) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, 0, fmt.Errorf("log path %q is a directory", path)
	}
	if q.Lines <= 0 {
		return nil, info.Size(), nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	ring := make([]string, q.Lines)
	count, idx := 0, 0
	for scanner.Scan() {
		line := scanner.Text()
		if !q.Match(line) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % q.Lines
		if count < q.Lines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	lines := make([]string, count)
	if count == q.Lines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%q.Lines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

// Follow polls path from offset and calls onLine for every new matching line
// until ctx is done. A file that shrinks below offset is read again from the start.
func Follow(ctx context.Context, path string, offset int64, q Query, poll time.Duration, onLine func(string)) error {
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		lines, next, err := readFrom(path, offset)
		if err != nil {
			return err
		}
		offset = next
		for _, line := range lines {
			if q.Match(line) {
				onLine(line)
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// readFrom returns complete lines written after offset. A trailing partial
// line is left for the next call.
func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		chunk, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return lines, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(chunk))
		lines = append(lines, strings.TrimRight(chunk, "\r\n"))
	}
	return lines, offset, nil
}
