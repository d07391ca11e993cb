package room

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// MemoryCatalog serves rooms from memory, typically loaded from a seed file.
type MemoryCatalog struct {
	mu    sync.RWMutex
	rooms map[string]Room
}

func NewMemoryCatalog(rooms ...Room) *MemoryCatalog {
	c := &MemoryCatalog{rooms: make(map[string]Room, len(rooms))}
	for _, r := range rooms {
		c.rooms[r.ID] = r
	}
	return c
}

func (c *MemoryCatalog) Room(_ context.Context, id string) (*Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (c *MemoryCatalog) List(_ context.Context) ([]Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Building != out[j].Building {
			return out[i].Building < out[j].Building
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// SetAvailable flips the administrative availability flag.
func (c *MemoryCatalog) SetAvailable(id string, available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.rooms[id]; ok {
		r.IsAvailable = available
		c.rooms[id] = r
	}
}

type seedFile struct {
	Rooms []Room `yaml:"rooms"`
}

// ParseSeed decodes a YAML document of the form:
//
//	rooms:
//	  - id: R101
//	    name: Room 101
//	    capacity: 40
//	    type: Classroom
//	    building: TowerA
//	    isAvailable: true
func ParseSeed(data []byte) ([]Room, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse room seed: %w", err)
	}
	seen := make(map[string]bool, len(f.Rooms))
	for i, r := range f.Rooms {
		if r.ID == "" {
			return nil, fmt.Errorf("room seed entry %d: missing id", i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("room seed entry %d: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		switch r.Type {
		case TypeClassroom, TypeLaboratory, TypeMeetingRoom, TypeAuditorium:
		default:
			return nil, fmt.Errorf("room %s: unknown type %q", r.ID, r.Type)
		}
	}
	return f.Rooms, nil
}

func LoadSeedFile(path string) ([]Room, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(data)
}
