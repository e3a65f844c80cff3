package editor

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"

	"github.com/amonks/tareas/task"
)

// TaskData is the data used to render the task template.
type TaskData struct {
	Name        string
	Assign      []string
	Description string
}

var taskTemplate = template.Must(template.New("task").Funcs(template.FuncMap{
	"quoted": func(values []string) string {
		quoted := make([]string, len(values))
		for i, value := range values {
			quoted[i] = fmt.Sprintf("%q", value)
		}
		return strings.Join(quoted, ", ")
	},
}).Parse(`name = {{ printf "%q" .Name }}
assign = [{{ quoted .Assign }}] # user names; assigning requires an admin
---
{{ .Description }}
`))

// RenderTaskTOML renders the task data as TOML frontmatter followed by the
// description.
func RenderTaskTOML(data TaskData) (string, error) {
	var buf bytes.Buffer
	if err := taskTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}

// ParsedTask is the result of editing a task template.
type ParsedTask struct {
	Name        string   `toml:"name"`
	Assign      []string `toml:"assign"`
	Description string   `toml:"-"`
}

// ParseTaskTOML parses the editor output.
func ParseTaskTOML(content string) (*ParsedTask, error) {
	frontmatter, body := splitFrontmatter(content)

	var parsed ParsedTask
	if _, err := toml.Decode(frontmatter, &parsed); err != nil {
		return nil, fmt.Errorf("parse TOML: %w", err)
	}
	parsed.Name = strings.TrimSpace(parsed.Name)
	parsed.Description = strings.TrimSpace(body)

	assign := parsed.Assign[:0]
	for _, name := range parsed.Assign {
		if name = strings.TrimSpace(name); name != "" {
			assign = append(assign, name)
		}
	}
	parsed.Assign = assign

	if parsed.Name == "" {
		return nil, task.ErrEmptyName
	}
	if parsed.Description == "" {
		return nil, task.ErrEmptyDescription
	}
	return &parsed, nil
}

func splitFrontmatter(content string) (string, string) {
	content = strings.TrimLeft(content, "\n")
	if content == "" {
		return "", ""
	}

	lines := strings.Split(content, "\n")
	separatorIndex := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == "---" {
			separatorIndex = i
			break
		}
	}
	if separatorIndex == -1 {
		return content, ""
	}

	frontmatter := strings.Join(lines[:separatorIndex], "\n")
	body := strings.Join(lines[separatorIndex+1:], "\n")
	return frontmatter, body
}

func createTaskTempFile() (*os.File, error) {
	return os.CreateTemp("", "tareas-task-*.md")
}

// EditTask opens the editor pre-populated with data and returns the
// parsed result.
func EditTask(data TaskData) (*ParsedTask, error) {
	content, err := RenderTaskTOML(data)
	if err != nil {
		return nil, err
	}

	tmpfile, err := createTaskTempFile()
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpfile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpfile.WriteString(content); err != nil {
		tmpfile.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpfile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if err := Edit(tmpPath); err != nil {
		return nil, err
	}

	edited, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read edited file: %w", err)
	}

	return ParseTaskTOML(string(edited))
}
