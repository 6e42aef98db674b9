package resourcecache

import "fmt"

// CommandKind selects the counterpart method a command invokes.
type CommandKind int

const (
	CommandLoadResources CommandKind = iota
	CommandSetScene
	CommandUpdateResource
)

// Counterpart method names.
const (
	MethodLoadFromJSON   = "loadFromJSON"
	MethodSetScene       = "setScene"
	MethodUpdateResource = "updateResource"
)

func (k CommandKind) String() string {
	switch k {
	case CommandLoadResources:
		return MethodLoadFromJSON
	case CommandSetScene:
		return MethodSetScene
	case CommandUpdateResource:
		return MethodUpdateResource
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// PendingCommand is one call waiting to reach the counterpart. Only the
// fields of its kind are set.
type PendingCommand struct {
	Kind CommandKind

	ExperienceID string
	Payload      string

	ResourceID string
	URL        string

	Scene Value
}

// args returns the counterpart arguments in call order. JSON loads pass the
// payload first, then the experience id.
func (c PendingCommand) args() []interface{} {
	switch c.Kind {
	case CommandLoadResources:
		return []interface{}{c.Payload, c.ExperienceID}
	case CommandSetScene:
		return []interface{}{c.Scene}
	case CommandUpdateResource:
		return []interface{}{c.ResourceID, c.URL}
	}
	return nil
}

// invoke runs the command against counterpart. It must run on the runtime
// goroutine.
func (c PendingCommand) invoke(e Engine, counterpart Value) error {
	if err := e.Invoke(counterpart, c.Kind.String(), c.args()...); err != nil {
		return fmt.Errorf("%s: %w", c.Kind, err)
	}
	return nil
}
