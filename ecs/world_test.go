package ecs

import (
	"errors"
	"strings"
	"testing"

	"github.com/milk9111/boxsorter/ecs/component"
)

func TestSparseWorldEntityLifecycle(t *testing.T) {
	cases := []struct {
		name         string
		create       int
		destroyIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_create_destroy_middle", 3, 1},
		{"none_destroy", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWorld()
			ents := make([]Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				ents = append(ents, CreateEntity(w))
			}
			if len(Entities(w)) != c.create {
				t.Fatalf("expected %d entities, got %d", c.create, len(Entities(w)))
			}
			if c.destroyIndex >= 0 {
				if !DestroyEntity(w, ents[c.destroyIndex]) {
					t.Fatalf("DestroyEntity should return true for alive entity")
				}
				if IsAlive(w, ents[c.destroyIndex]) {
					t.Fatalf("entity should not be alive after destruction")
				}
				if DestroyEntity(w, ents[c.destroyIndex]) {
					t.Fatalf("DestroyEntity should return false for a dead entity")
				}
			}
		})
	}
}

func TestRecycledIdGetsNewGeneration(t *testing.T) {
	w := NewWorld()
	h := component.NewComponent[int]()

	old := CreateEntity(w)
	if err := Add(w, old, h.Kind(), intPtr(1)); err != nil {
		t.Fatal(err)
	}
	DestroyEntity(w, old)

	reused := CreateEntity(w)
	if reused.id() != old.id() {
		t.Fatalf("expected id reuse, got %v and %v", old, reused)
	}
	if reused == old {
		t.Fatalf("recycled handle must differ from the stale one")
	}
	if IsAlive(w, old) {
		t.Fatalf("stale handle reported alive")
	}
	if Has(w, reused, h.Kind()) {
		t.Fatalf("components must not survive destruction")
	}
	if err := Add(w, old, h.Kind(), intPtr(2)); err == nil {
		t.Fatalf("expected error adding to a stale handle")
	}
}

func intPtr(i int) *int {
	return &i
}

func stringPtr(s string) *string {
	return &s
}

func TestSparseWorldComponentsAndQueries(t *testing.T) {
	w := NewWorld()

	h1 := component.NewComponent[int]()
	h2 := component.NewComponent[string]()

	e1 := CreateEntity(w)
	e2 := CreateEntity(w)

	tests := []struct {
		name     string
		setup    func() error
		check    func(t *testing.T)
		teardown func() bool
	}{
		{
			name:  "add_int_to_e1",
			setup: func() error { return Add(w, e1, h1.Kind(), intPtr(10)) },
			check: func(t *testing.T) {
				v, ok := Get(w, e1, h1.Kind())
				if !ok || *v != 10 {
					t.Fatalf("expected 10, got %v ok=%v", v, ok)
				}
			},
			teardown: func() bool { return Remove(w, e1, h1.Kind()) },
		},
		{
			name: "add_str_to_e1_and_e2",
			setup: func() error {
				if err := Add(w, e1, h2.Kind(), stringPtr("a")); err != nil {
					return err
				}
				return Add(w, e2, h2.Kind(), stringPtr("b"))
			},
			check: func(t *testing.T) {
				if !Has(w, e1, h2.Kind()) || !Has(w, e2, h2.Kind()) {
					t.Fatalf("expected both entities to have string component")
				}
				first, ok := First(w, h2.Kind())
				if !ok || first != e1 {
					t.Fatalf("expected First to return e1, got %v", first)
				}
			},
			teardown: func() bool { return Remove(w, e1, h2.Kind()) },
		},
		{
			name:  "nil_value_rejected",
			setup: func() error { return nil },
			check: func(t *testing.T) {
				if err := Add(w, e1, h1.Kind(), nil); !errors.Is(err, component.ErrNilComponent) {
					t.Fatalf("expected ErrNilComponent, got %v", err)
				}
			},
			teardown: func() bool { return !Has(w, e1, h1.Kind()) },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.setup(); err != nil {
				t.Fatalf("setup failed: %v", err)
			}
			tc.check(t)
			if !tc.teardown() {
				t.Fatalf("teardown failed for %s", tc.name)
			}
		})
	}
}

func TestForEach(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		w := NewWorld()
		h := component.NewComponent[int]()

		e1 := CreateEntity(w)
		e2 := CreateEntity(w)
		e3 := CreateEntity(w)

		if err := Add(w, e1, h.Kind(), intPtr(1)); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if err := Add(w, e3, h.Kind(), intPtr(3)); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		seen := map[Entity]bool{}
		ForEach(w, h.Kind(), func(e Entity, _ *int) { seen[e] = true })

		if !seen[e1] || !seen[e3] {
			t.Fatalf("expected e1 and e3 in ForEach result, got %v", seen)
		}
		if seen[e2] {
			t.Fatalf("did not expect e2 in ForEach result")
		}
	})

	t.Run("destroy_during_iteration", func(t *testing.T) {
		w := NewWorld()
		h := component.NewComponent[int]()
		for i := 0; i < 4; i++ {
			e := CreateEntity(w)
			if err := Add(w, e, h.Kind(), intPtr(i)); err != nil {
				t.Fatal(err)
			}
		}

		visited := 0
		ForEach(w, h.Kind(), func(e Entity, _ *int) {
			visited++
			DestroyEntity(w, e)
		})
		if visited != 4 {
			t.Fatalf("expected 4 visits, got %d", visited)
		}
		if n := len(Entities(w)); n != 0 {
			t.Fatalf("expected all entities destroyed, got %d", n)
		}
	})
}

func TestForEach3(t *testing.T) {
	tests := []struct {
		name string
		run  func(t *testing.T)
	}{
		{
			name: "intersection",
			run: func(t *testing.T) {
				w := NewWorld()
				e1 := CreateEntity(w)
				e2 := CreateEntity(w)

				ka := component.NewComponentKind[int]()
				kb := component.NewComponentKind[int]()
				kc := component.NewComponentKind[int]()

				for _, k := range []component.ComponentKind[int]{ka, kb, kc} {
					if err := Add(w, e2, k, intPtr(2)); err != nil {
						t.Fatal(err)
					}
				}
				if err := Add(w, e1, ka, intPtr(1)); err != nil {
					t.Fatal(err)
				}

				var res []Entity
				ForEach3(w, ka, kb, kc, func(e Entity, _ *int, _ *int, _ *int) { res = append(res, e) })
				if len(res) != 1 || res[0] != e2 {
					t.Fatalf("expected only e2, got %v", res)
				}
			},
		},
		{
			name: "missing_store_returns_nil",
			run: func(t *testing.T) {
				w := NewWorld()
				e := CreateEntity(w)

				ka := component.NewComponentKind[int]()
				kb := component.NewComponentKind[int]()
				kc := component.NewComponentKind[int]()

				if err := Add(w, e, ka, intPtr(1)); err != nil {
					t.Fatal(err)
				}

				var res []Entity
				ForEach3(w, ka, kb, kc, func(e Entity, _ *int, _ *int, _ *int) { res = append(res, e) })
				if len(res) != 0 {
					t.Fatalf("expected empty when other store missing, got %v", res)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, tc.run)
	}
}

type countingSystem struct {
	dts    []float64
	events int
}

func (s *countingSystem) Update(w *World) {
	s.dts = append(s.dts, w.DeltaTime())
	s.events = len(w.Events().Peek())
	w.Events().Push(Event{Type: "tick"})
}

func TestStepRunsSystemsAndRollsEvents(t *testing.T) {
	w := NewWorld()
	sys := &countingSystem{}
	w.AddSystem(sys)
	w.AddSystem(nil)

	w.Step(0.5)
	w.Step(-1)

	if len(sys.dts) != 2 || sys.dts[0] != 0.5 || sys.dts[1] != 0 {
		t.Fatalf("unexpected dts %v", sys.dts)
	}
	if sys.events != 0 {
		t.Fatalf("events from the previous step should be flushed, saw %d", sys.events)
	}
	if w.Tick() != 2 {
		t.Fatalf("expected tick 2, got %d", w.Tick())
	}
	if got := w.Events().Drain(); len(got) != 1 {
		t.Fatalf("expected one pending event, got %d", len(got))
	}
}

func TestEventsPushedBetweenStepsSurvive(t *testing.T) {
	w := NewWorld()
	sys := &countingSystem{}
	w.AddSystem(sys)

	w.Events().Push(Event{Type: "setup"})
	w.Step(0.1)
	if sys.events != 1 {
		t.Fatalf("expected the setup event during the first step, saw %d", sys.events)
	}

	w.Step(0.1)
	if sys.events != 0 {
		t.Fatalf("setup event should be gone after one step, saw %d", sys.events)
	}
}

func TestAddErrorsNameTheKind(t *testing.T) {
	w := NewWorld()
	h := component.NewComponent[component.Transform]()
	if got := h.Kind().Name(); got != "Transform" {
		t.Fatalf("expected kind name Transform, got %q", got)
	}

	e := CreateEntity(w)
	DestroyEntity(w, e)
	err := Add(w, e, h.Kind(), &component.Transform{})
	if !errors.Is(err, component.ErrEntityNotAlive) {
		t.Fatalf("expected ErrEntityNotAlive, got %v", err)
	}
	if !strings.Contains(err.Error(), "Transform") {
		t.Fatalf("expected the kind in %q", err)
	}

	var zero component.ComponentKind[int]
	if err := Add(w, CreateEntity(w), zero, intPtr(1)); !errors.Is(err, component.ErrInvalidComponentKind) {
		t.Fatalf("expected ErrInvalidComponentKind, got %v", err)
	}
}
