package component

import "github.com/jakecoffman/cp"

// PhysicsBody stores Chipmunk2D runtime data and collider configuration.
// Body and Shape are owned by the physics system.
type PhysicsBody struct {
	Body       *cp.Body
	Shape      *cp.Shape
	Width      float64
	Height     float64
	Mass       float64
	Friction   float64
	Elasticity float64
	// Disabled bodies are taken out of the space; the entity's Transform is
	// then driven by gameplay code.
	Disabled bool
}

var PhysicsBodyComponent = NewComponent[PhysicsBody]()
