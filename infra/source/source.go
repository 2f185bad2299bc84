package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/studyplan/core/planner"
)

// ErrUnknownStudent is returned when no profile has the requested id.
var ErrUnknownStudent = errors.New("unknown student")

// Source provides student inputs by id.
type Source interface {
	StudentIDs(ctx context.Context) ([]string, error)
	Load(ctx context.Context, studentID string) (planner.StudentInput, error)
}

// YAMLSource serves profiles read from a YAML file or a directory of
// YAML files. A file may hold several documents or a top-level list.
type YAMLSource struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	order    []string
}

// Open reads path, which may be a file or a directory.
func Open(path string) (*YAMLSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	var files []string
	if info.IsDir() {
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			m, err := filepath.Glob(filepath.Join(path, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, m...)
		}
		sort.Strings(files)
	} else {
		files = []string{path}
	}
	s := &YAMLSource{profiles: make(map[string]Profile)}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		profiles, err := Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		if err := s.add(profiles...); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
	}
	return s, nil
}

// NewYAMLSource builds a source from already decoded profiles.
func NewYAMLSource(profiles ...Profile) (*YAMLSource, error) {
	s := &YAMLSource{profiles: make(map[string]Profile)}
	if err := s.add(profiles...); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *YAMLSource) add(profiles ...Profile) error {
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := s.profiles[p.ID]; dup {
			return fmt.Errorf("duplicate student %q", p.ID)
		}
		s.profiles[p.ID] = p
		s.order = append(s.order, p.ID)
	}
	return nil
}

// Decode reads every profile in r. Unknown fields are rejected.
func Decode(r io.Reader) ([]Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var out []Profile
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		if len(node.Content) == 1 && node.Content[0].Kind == yaml.SequenceNode {
			var list []Profile
			if err := decodeStrict(&node, &list); err != nil {
				return nil, err
			}
			out = append(out, list...)
			continue
		}
		var p Profile
		if err := decodeStrict(&node, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}

// decodeStrict re-encodes n so KnownFields applies to the typed decode.
func decodeStrict(n *yaml.Node, v any) error {
	b, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(v)
}

// StudentIDs returns profile ids in load order.
func (s *YAMLSource) StudentIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...), nil
}

// Load returns the planner input of one student.
func (s *YAMLSource) Load(ctx context.Context, studentID string) (planner.StudentInput, error) {
	if err := ctx.Err(); err != nil {
		return planner.StudentInput{}, err
	}
	s.mu.RLock()
	p, ok := s.profiles[strings.TrimSpace(studentID)]
	s.mu.RUnlock()
	if !ok {
		return planner.StudentInput{}, fmt.Errorf("%w: %s", ErrUnknownStudent, studentID)
	}
	return p.Input(), nil
}
