package service

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/fulldump/apitest"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Save writes a markdown page documenting one request/response pair to
// API_EXAMPLES_PATH. Nothing is written when the variable is empty.
func Save(response *apitest.Response, title, description string) {

	examplesPath := os.Getenv("API_EXAMPLES_PATH")
	if examplesPath == "" {
		return
	}

	doc := &strings.Builder{}
	doc.WriteString("# " + title + "\n")
	doc.WriteString(trimIndent(description) + "\n")

	writeCurl(doc, response)
	writeExchange(doc, response)

	filename := strings.ReplaceAll(strings.ToLower(title), " ", "_") + ".md"
	p := path.Join(examplesPath, path.Clean(filename))
	if err := os.WriteFile(p, []byte(doc.String()), 0666); err != nil {
		slog.Error("save api example", "file", p, "error", err)
		return
	}
	slog.Info("api example saved", "file", p)
}

func requestTarget(response *apitest.Response) string {
	target := response.Request.URL.Path
	if query := response.Request.URL.RawQuery; query != "" {
		target += "?" + query
	}
	return target
}

func writeCurl(doc *strings.Builder, response *apitest.Response) {
	request := response.Request

	doc.WriteString("Curl example:\n\n```sh\ncurl ")
	if request.Method != "GET" {
		doc.WriteString("-X " + request.Method + " ")
	}
	doc.WriteString(`"https://example.com` + requestTarget(response) + `"`)
	for _, k := range sortedKeys(request.Header) {
		for _, v := range request.Header[k] {
			doc.WriteString(" \\\n-H \"" + k + ": " + v + "\"")
		}
	}
	if body := formatBody(response.BodyRequestString()); body != "" {
		doc.WriteString(" \\\n-d '" + body + "'")
	}
	doc.WriteString("\n```\n\n\n")
}

func writeExchange(doc *strings.Builder, response *apitest.Response) {
	request := response.Request

	doc.WriteString("HTTP request/response example:\n\n```http\n")

	doc.WriteString(request.Method + " " + requestTarget(response) + " " + request.Proto + "\n")
	doc.WriteString("Host: example.com\n")
	for _, k := range sortedKeys(request.Header) {
		for _, v := range request.Header[k] {
			doc.WriteString(k + ": " + v + "\n")
		}
	}
	doc.WriteString("\n" + formatBody(response.BodyRequestString()) + "\n\n")

	doc.WriteString(response.Proto + " " + response.Status + "\n")
	for _, k := range sortedKeys(response.Header) {
		if k == "Date" {
			// stable output across runs
			doc.WriteString("Date: Mon, 15 Aug 2022 02:08:13 GMT\n")
			continue
		}
		for _, v := range response.Header[k] {
			doc.WriteString(k + ": " + v + "\n")
		}
	}
	doc.WriteString("\n" + formatBody(response.BodyString()) + "\n```\n\n\n")
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// formatBody indents every JSON value of body. Bodies that are not JSON are
// returned as they are.
func formatBody(body string) string {
	dec := jsontext.NewDecoder(strings.NewReader(body))
	values := []string{}
	for {
		var v any
		err := json.UnmarshalDecode(dec, &v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return body
		}
		indented, err := json.Marshal(v, jsontext.WithIndent("    "), json.Deterministic(true))
		if err != nil {
			return body
		}
		values = append(values, string(indented))
	}
	if len(values) == 0 {
		return body
	}
	return strings.Join(values, "\n")
}

// trimIndent removes the common leading tabs of a raw string literal written
// inside indented test code.
func trimIndent(d string) string {
	lines := strings.Split(d, "\n")

	inner := lines
	if len(lines) > 2 {
		inner = lines[1 : len(lines)-1]
	}

	tabs := -1
	for _, line := range inner {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, "\t"))
		if tabs < 0 || n < tabs {
			tabs = n
		}
	}

	prefix := strings.Repeat("\t", max(tabs, 0))
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}

	return strings.ReplaceAll(strings.Join(lines, "\n"), "\n´´´", "\n```")
}
