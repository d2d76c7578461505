package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidCommand = errors.New("invalid command")

type CommandKind string

const (
	CommandEmergencyTrigger CommandKind = "EMERGENCY_TRIGGER"
	CommandEmergencyClear   CommandKind = "EMERGENCY_CLEAR"
	CommandOptimize         CommandKind = "OPTIMIZE"
	CommandDetect           CommandKind = "DETECT"
)

// ImageUpload carries the file for a DETECT command.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CommandRequest lives only for the duration of one dispatch.
type CommandRequest struct {
	Kind           CommandKind
	IntersectionID string
	Direction      Direction
	Image          *ImageUpload
}

func (r CommandRequest) Validate() error {
	if r.IntersectionID == "" {
		return fmt.Errorf("%w: intersection id is required", ErrInvalidCommand)
	}
	switch r.Kind {
	case CommandEmergencyTrigger:
		if _, err := ParseDirection(string(r.Direction)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
	case CommandEmergencyClear, CommandOptimize:
	case CommandDetect:
		if r.Image == nil || len(r.Image.Data) == 0 {
			return fmt.Errorf("%w: image is required", ErrInvalidCommand)
		}
		if r.Direction != "" {
			if _, err := ParseDirection(string(r.Direction)); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
			}
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCommand, r.Kind)
	}
	return nil
}

// MarkerKey names the control a marker belongs to, e.g. "INT_001/emergency:north".
func (r CommandRequest) MarkerKey() string {
	switch r.Kind {
	case CommandEmergencyTrigger:
		return r.IntersectionID + "/emergency:" + string(r.Direction)
	case CommandEmergencyClear:
		return r.IntersectionID + "/emergency:clear"
	case CommandOptimize:
		return r.IntersectionID + "/optimize"
	case CommandDetect:
		return r.IntersectionID + "/detection"
	}
	return r.IntersectionID + "/" + string(r.Kind)
}

type CommandOutcome struct {
	RequestID    string      `json:"request_id"`
	Kind         CommandKind `json:"kind"`
	Succeeded    bool        `json:"succeeded"`
	UsedFallback bool        `json:"used_fallback"`
	Result       any         `json:"result,omitempty"`
	Error        string      `json:"error,omitempty"`
}

type MarkerState string

const (
	MarkerIdle       MarkerState = "IDLE"
	MarkerProcessing MarkerState = "PROCESSING"
	MarkerConfirmed  MarkerState = "CONFIRMED"
	MarkerFailed     MarkerState = "FAILED"
	MarkerSimulated  MarkerState = "SIMULATED"
)

var markerTransitions = map[MarkerState][]MarkerState{
	MarkerIdle:       {MarkerProcessing},
	MarkerProcessing: {MarkerConfirmed, MarkerFailed, MarkerSimulated},
	MarkerConfirmed:  {MarkerIdle},
	MarkerFailed:     {MarkerIdle},
	MarkerSimulated:  {MarkerIdle},
}

func (s MarkerState) CanTransition(to MarkerState) bool {
	for _, next := range markerTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s MarkerState) Terminal() bool {
	return s == MarkerConfirmed || s == MarkerFailed || s == MarkerSimulated
}

// Marker is the transient visual state of a control button.
type Marker struct {
	Key       string      `json:"key"`
	State     MarkerState `json:"state"`
	RequestID string      `json:"request_id,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}
