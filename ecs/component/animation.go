package component

// AnimationClip is a named clip with a playback length in seconds.
type AnimationClip struct {
	Name     string
	Duration float64
	Loop     bool
}

type Animation struct {
	Clips   map[string]AnimationClip
	Current string
	Elapsed float64
	Playing bool
	// Fresh is set for the tick a clip was started on.
	Fresh bool

	// OnComplete fires once when a non-looping clip finishes.
	OnComplete func()
}

// Progress is the normalized playback time of the current clip.
func (a *Animation) Progress() float64 {
	if a == nil {
		return 0
	}
	clip, ok := a.Clips[a.Current]
	if !ok || clip.Duration <= 0 {
		return 1
	}
	return a.Elapsed / clip.Duration
}

var AnimationComponent = NewComponent[Animation]()
