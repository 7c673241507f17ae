package processors

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

type DockerInstruction struct {
	Directive string
	Arguments string
}

// ParseDockerfile returns the instructions of a Dockerfile with line
// continuations joined and comments removed.
func ParseDockerfile(reader io.Reader) ([]DockerInstruction, error) {
	var instructions []DockerInstruction
	var current strings.Builder

	flush := func() error {
		if current.Len() == 0 {
			return nil
		}
		instruction, err := parseInstruction(current.String())
		current.Reset()
		if err != nil {
			return err
		}
		instructions = append(instructions, instruction)
		return nil
	}

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, "\\") {
			current.WriteString(strings.TrimRight(line, "\\") + " ")
			continue
		}
		current.WriteString(line)
		if err := flush(); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return instructions, nil
}

func parseInstruction(line string) (DockerInstruction, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return DockerInstruction{}, fmt.Errorf("empty instruction")
	}
	return DockerInstruction{
		Directive: strings.ToUpper(parts[0]),
		Arguments: strings.TrimSpace(line[len(parts[0]):]),
	}, nil
}

// DockerProcessor reports the base images of every build stage.
type DockerProcessor struct{}

func (DockerProcessor) Supports(filePath string) bool {
	filename := filepath.Base(filePath)
	return filename == "Dockerfile" || strings.HasPrefix(filename, "Dockerfile.") || strings.HasSuffix(filename, ".Dockerfile")
}

func (DockerProcessor) Process(path string, content []byte) ([]Dependency, error) {
	instructions, err := ParseDockerfile(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Dockerfile '%s': %w", path, err)
	}

	stages := map[string]bool{}
	var deps []Dependency
	for _, instruction := range instructions {
		if instruction.Directive != "FROM" {
			continue
		}
		image, stage := parseFrom(instruction.Arguments)
		if image != "" && image != "scratch" && !stages[strings.ToLower(image)] {
			name, version := SplitImageReference(image)
			deps = append(deps, Dependency{Name: name, Version: version, Ecosystem: EcosystemDocker, Kind: "base_image"})
		}
		if stage != "" {
			stages[strings.ToLower(stage)] = true
		}
	}
	return deps, nil
}

// parseFrom handles `[--platform=...] image [AS name]`.
func parseFrom(arguments string) (string, string) {
	var fields []string
	for _, f := range strings.Fields(arguments) {
		if !strings.HasPrefix(f, "--") {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) >= 3 && strings.EqualFold(fields[1], "as") {
		return fields[0], fields[2]
	}
	return fields[0], ""
}

// SplitImageReference separates an image reference into repository and tag
// or digest. Untagged images are reported as "latest".
func SplitImageReference(image string) (string, string) {
	if i := strings.Index(image, "@"); i >= 0 {
		return image[:i], image[i+1:]
	}
	slash := strings.LastIndex(image, "/")
	if i := strings.LastIndex(image, ":"); i > slash {
		return image[:i], image[i+1:]
	}
	return image, "latest"
}
