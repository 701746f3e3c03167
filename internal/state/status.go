package state

import "fmt"

// Status is the game lifecycle. Values are ordered: a game only ever moves to
// a larger Status.
type Status uint8

const (
	StatusAwaitingRandomness Status = iota
	StatusPlayerTurn
	StatusDealerTurn
	StatusSettled
	StatusClosed
)

var statusNames = [...]string{
	StatusAwaitingRandomness: "AwaitingRandomness",
	StatusPlayerTurn:         "PlayerTurn",
	StatusDealerTurn:         "DealerTurn",
	StatusSettled:            "Settled",
	StatusClosed:             "Closed",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

func (s Status) Terminal() bool { return s == StatusClosed }

func ParseStatus(label string) (Status, error) {
	for i, name := range statusNames {
		if name == label {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", label)
}

func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
