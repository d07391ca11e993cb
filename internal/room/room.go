// Package room is the read-only view of the room catalog the engine books against.
package room

import (
	"context"
	"errors"
)

type Type string

const (
	TypeClassroom   Type = "Classroom"
	TypeLaboratory  Type = "Laboratory"
	TypeMeetingRoom Type = "MeetingRoom"
	TypeAuditorium  Type = "Auditorium"
)

type Room struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Capacity    int    `json:"capacity" yaml:"capacity"`
	Type        Type   `json:"type" yaml:"type"`
	Building    string `json:"building" yaml:"building"`
	IsAvailable bool   `json:"isAvailable" yaml:"isAvailable"`
}

var ErrNotFound = errors.New("room not found")

// Catalog looks rooms up. Implementations return ErrNotFound for unknown ids.
type Catalog interface {
	Room(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context) ([]Room, error)
}
