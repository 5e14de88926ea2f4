package system

import (
	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/component"
)

// AnimationSystem advances clip playback and fires completion callbacks. It is
// the agents' Presenter.
type AnimationSystem struct {
	clips map[string]component.AnimationClip
}

// NewAnimationSystem uses clips for entities that do not define their own.
func NewAnimationSystem(clips map[string]component.AnimationClip) *AnimationSystem {
	return &AnimationSystem{clips: clips}
}

// SetClips replaces the default clip table, e.g. after a config reload.
func (s *AnimationSystem) SetClips(clips map[string]component.AnimationClip) {
	s.clips = clips
}

// Play restarts clip on e. A pending callback from an earlier clip is dropped.
func (s *AnimationSystem) Play(w *ecs.World, e ecs.Entity, clip string, onComplete func()) {
	if w == nil || !ecs.IsAlive(w, e) {
		return
	}
	anim, ok := ecs.Get(w, e, component.AnimationComponent.Kind())
	if !ok {
		anim = &component.Animation{}
		if err := ecs.Add(w, e, component.AnimationComponent.Kind(), anim); err != nil {
			return
		}
	}
	if anim.Clips == nil {
		anim.Clips = s.clips
	}
	anim.Current = clip
	anim.Elapsed = 0
	anim.Playing = true
	anim.Fresh = true
	anim.OnComplete = onComplete
}

func (s *AnimationSystem) Update(w *ecs.World) {
	if w == nil {
		return
	}
	dt := w.DeltaTime()
	ecs.ForEach(w, component.AnimationComponent.Kind(), func(e ecs.Entity, anim *component.Animation) {
		if !anim.Playing {
			return
		}
		// Clips started this tick begin advancing on the next one.
		if anim.Fresh {
			anim.Fresh = false
			return
		}
		anim.Elapsed += dt

		clip, ok := anim.Clips[anim.Current]
		if ok && clip.Loop && clip.Duration > 0 {
			for anim.Elapsed >= clip.Duration {
				anim.Elapsed -= clip.Duration
			}
			return
		}
		if anim.Progress() < 1 {
			return
		}
		anim.Playing = false
		cb := anim.OnComplete
		anim.OnComplete = nil
		if cb != nil {
			cb()
		}
	})
}
