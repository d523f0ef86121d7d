package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

// batchFile is the wrapped form of a batch file.
type batchFile struct {
	Sermons []sermonimport.ImportRow `json:"sermons" yaml:"sermons"`
}

// LoadRows reads a batch from path, or from stdin when path is "-".
//
// Files ending in .yaml or .yml are YAML, everything else is JSON. Both
// accept either {"sermons": [...]} or a bare list of rows.
func LoadRows(path string, stdin io.Reader) ([]sermonimport.ImportRow, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = sanitize(data)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sanitize drops a leading byte order mark and replaces invalid UTF-8 with
// U+FFFD. Spreadsheet exports saved on Windows often carry both.
func sanitize(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("\uFFFD"))
}

func decodeJSON(data []byte) ([]sermonimport.ImportRow, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode json: empty input")
	}

	var rows []sermonimport.ImportRow
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return nonNil(rows), nil
	}

	var file batchFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return nonNil(file.Sermons), nil
}

func decodeYAML(data []byte) ([]sermonimport.ImportRow, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return nil, fmt.Errorf("decode yaml: empty input")
	}

	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var rows []sermonimport.ImportRow
		if err := root.Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return nonNil(rows), nil
	}

	var file batchFile
	if err := root.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return nonNil(file.Sermons), nil
}

func nonNil(rows []sermonimport.ImportRow) []sermonimport.ImportRow {
	if rows == nil {
		return []sermonimport.ImportRow{}
	}
	return rows
}
