package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"skylinedb/pkg/common"
)

var ErrMalformedInput = errors.New("malformed input")

// ParseText reads one point per line as two whitespace separated numbers.
// Blank lines and lines starting with '#' are skipped. Entries get IDs in
// input order starting at 1 and a synthetic value naming their line.
func ParseText(r io.Reader) ([]common.Entry, error) {
	var entries []common.Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parsePoint(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, common.Entry{
			ID:    common.KeyType(len(entries) + 1),
			Value: common.ValueType(fmt.Sprintf("p%d", lineNo)),
			Point: p,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func parsePoint(line string) (common.Point, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return common.Point{}, fmt.Errorf("%w: want 2 fields, got %d", ErrMalformedInput, len(fields))
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return common.Point{}, fmt.Errorf("%w: x %q", ErrMalformedInput, fields[0])
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return common.Point{}, fmt.Errorf("%w: y %q", ErrMalformedInput, fields[1])
	}
	p := common.Point{X: x, Y: y}
	if !p.Finite() {
		return common.Point{}, fmt.Errorf("%w: non-finite point %s", ErrMalformedInput, p)
	}
	return p, nil
}

func LoadTextFile(path string) ([]common.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseText(f)
}

// LoadDataset loads a SQLite dataset for .db/.sqlite files and a text
// dataset otherwise.
func LoadDataset(path string) ([]common.Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		src, err := OpenSQLiteSource(path)
		if err != nil {
			return nil, err
		}
		defer src.Close()
		return src.LoadAll()
	default:
		return LoadTextFile(path)
	}
}
