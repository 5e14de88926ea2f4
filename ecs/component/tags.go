package component

// AgentTag marks entities driven by an agent controller.
type AgentTag struct {
	Name string
}

var AgentTagComponent = NewComponent[AgentTag]()

// SpawnedTag marks carryables created by the spawner and the tick they
// appeared on.
type SpawnedTag struct {
	Tick uint64
}

var SpawnedTagComponent = NewComponent[SpawnedTag]()
