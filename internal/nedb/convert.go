package nedb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// DBToYAML converts newline-delimited JSON database content into a stream
// of YAML documents separated by --- markers. Records keep their key order.
func DBToYAML(content string) (string, error) {
	doc := parseDocument("", "", content)

	var out strings.Builder
	emitted := 0
	for n, line := range doc.Lines() {
		if strings.TrimSpace(line) == "" {
			continue
		}
		y, err := yaml.JSONToYAML([]byte(line))
		if err != nil {
			return "", fmt.Errorf("record %d: %w", n+1, err)
		}
		if emitted > 0 {
			out.WriteString("---\n")
		}
		out.Write(y)
		emitted++
	}
	return out.String(), nil
}

// YAMLToDB converts a stream of YAML documents back into newline-delimited
// JSON, one compact record per line.
func YAMLToDB(content string) (string, error) {
	var out strings.Builder
	for n, doc := range splitYAMLDocuments(content) {
		if strings.TrimSpace(doc) == "" {
			continue
		}
		j, err := yaml.YAMLToJSON([]byte(doc))
		if err != nil {
			return "", fmt.Errorf("document %d: %w", n+1, err)
		}

		var compact bytes.Buffer
		if err := json.Compact(&compact, j); err != nil {
			return "", fmt.Errorf("document %d: %w", n+1, err)
		}
		out.Write(compact.Bytes())
		out.WriteByte('\n')
	}
	return out.String(), nil
}

// splitYAMLDocuments splits a YAML stream on --- document markers.
func splitYAMLDocuments(content string) []string {
	content = strings.TrimPrefix(content, "---\n")
	return strings.Split(content, "\n---\n")
}
