package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client-originated event types.
const (
	TypeJoin  = "join"
	TypeLeave = "leave"
	TypeData  = "data"
)

// Server-originated event types.
const (
	TypeJoined = "joined"
	TypeLeft   = "left"
	TypeError  = "error"
)

// serverSender is the from field on server-originated frames.
const serverSender = "server"

// ErrInvalidEvent is returned by Decode for anything that is not a
// well-formed client event.
var ErrInvalidEvent = errors.New("invalid event")

// Event is a decoded client frame: *Join, *Leave or *Data.
type Event interface {
	isEvent()
}

// Peer is a room member's identity plus its permission filter.
// Nil mods means the peer is exempt from mod filtering.
type Peer struct {
	ID   string   `json:"id"`
	Mods []string `json:"mods"`
}

// Join asks to enter a room under an asserted id.
type Join struct {
	Type string   `json:"type"`
	ID   string   `json:"id"`
	Room string   `json:"room"`
	Mods []string `json:"mods"`
}

// Leave exits the sender's current room.
type Leave struct {
	Type string `json:"type"`
}

// Data is a relayed payload addressed to all members or an explicit list.
type Data struct {
	Type string `json:"type"`
	Mod  string `json:"mod"`
	To   Target `json:"to"`
	From string `json:"from"`
	Data string `json:"data"`
}

func (*Join) isEvent()  {}
func (*Leave) isEvent() {}
func (*Data) isEvent()  {}

// Target is the data event recipient set: the literal "all" or a list of ids.
type Target struct {
	All bool
	IDs []string
}

// TargetAll addresses every room member.
func TargetAll() Target { return Target{All: true} }

// TargetIDs addresses an explicit recipient list.
func TargetIDs(ids ...string) Target { return Target{IDs: ids} }

func (t Target) MarshalJSON() ([]byte, error) {
	if t.All {
		return json.Marshal("all")
	}
	if t.IDs == nil {
		return nil, fmt.Errorf("target: neither all nor ids set")
	}
	return json.Marshal(t.IDs)
}

func (t *Target) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "all" {
			return fmt.Errorf("target: unknown literal %q", s)
		}
		t.All = true
		t.IDs = nil
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("target: want \"all\" or array of ids")
	}
	if ids == nil {
		return fmt.Errorf("target: null recipient list")
	}
	t.All = false
	t.IDs = ids
	return nil
}

// Joined tells a client which peers are (or became) present in its room.
type Joined struct {
	Type  string `json:"type"`
	From  string `json:"from"`
	Peers []Peer `json:"peers"`
}

// NewJoined builds a joined frame for the given peers.
func NewJoined(peers []Peer) Joined {
	if peers == nil {
		peers = []Peer{}
	}
	return Joined{Type: TypeJoined, From: serverSender, Peers: peers}
}

// Left tells a client that a peer left its room.
type Left struct {
	Type string `json:"type"`
	From string `json:"from"`
	ID   string `json:"id"`
}

// NewLeft builds a left frame for the departed id.
func NewLeft(id string) Left {
	return Left{Type: TypeLeft, From: serverSender, ID: id}
}

// Error is sent in response to a frame that failed validation.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewError builds an error frame.
func NewError(message string) Error {
	return Error{Type: TypeError, Message: message}
}

// Decode parses and validates a client frame. Anything malformed, of unknown
// type, or missing required fields yields ErrInvalidEvent; the caller should
// answer with an error frame and leave all state untouched.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, ErrInvalidEvent
	}

	switch head.Type {
	case TypeJoin:
		var join Join
		if err := json.Unmarshal(data, &join); err != nil {
			return nil, ErrInvalidEvent
		}
		if join.ID == "" || join.Room == "" {
			return nil, ErrInvalidEvent
		}
		return &join, nil
	case TypeLeave:
		return &Leave{Type: TypeLeave}, nil
	case TypeData:
		var ev Data
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, ErrInvalidEvent
		}
		if ev.From == "" {
			return nil, ErrInvalidEvent
		}
		if !ev.To.All && ev.To.IDs == nil {
			return nil, ErrInvalidEvent
		}
		return &ev, nil
	default:
		return nil, ErrInvalidEvent
	}
}
