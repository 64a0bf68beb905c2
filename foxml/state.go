package foxml

// State is the lifecycle state of an object or datastream.
type State int

const (
	StateUnknown State = iota
	Active
	Inactive
	Deleted
)

var stateNames = []string{"Unknown", "Active", "Inactive", "Deleted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return stateNames[0]
}

// ParseState understands both the object property spelling ("Active") and
// the single letter datastream spelling ("A").
func ParseState(s string) State {
	switch s {
	case "Active", "A":
		return Active
	case "Inactive", "I":
		return Inactive
	case "Deleted", "D":
		return Deleted
	}
	return StateUnknown
}
