package component

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
)

var (
	ErrEntityNotAlive       = errors.New("ecs: entity not alive")
	ErrNilComponent         = errors.New("ecs: component is nil")
	ErrInvalidComponentKind = errors.New("ecs: invalid component kind")
)

type ComponentID uint32

var (
	nextComponentID atomic.Uint32

	namesMu sync.RWMutex
	names   = map[ComponentID]string{}
)

// ComponentKind is the typed key a world stores T under.
type ComponentKind[T any] struct {
	id ComponentID
}

func NewComponentKind[T any]() ComponentKind[T] {
	id := ComponentID(nextComponentID.Add(1))
	namesMu.Lock()
	names[id] = reflect.TypeFor[T]().Name()
	namesMu.Unlock()
	return ComponentKind[T]{id: id}
}

func (k ComponentKind[T]) ID() ComponentID {
	return k.id
}

func (k ComponentKind[T]) Valid() bool {
	return k.id != 0
}

// Name is the Go type name the kind was registered for.
func (k ComponentKind[T]) Name() string {
	return NameOf(k.id)
}

// NameOf returns the registered type name for id, or "" when unknown.
func NameOf(id ComponentID) string {
	namesMu.RLock()
	defer namesMu.RUnlock()
	return names[id]
}

type ComponentHandle[T any] struct {
	kind ComponentKind[T]
}

func NewComponent[T any]() ComponentHandle[T] {
	return ComponentHandle[T]{kind: NewComponentKind[T]()}
}

func (h ComponentHandle[T]) Kind() ComponentKind[T] {
	return h.kind
}
