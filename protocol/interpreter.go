package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/hxri-nxrxyxn/eyetap/domain"
)

// Interpret decodes a text frame into a gaze event. Errors wrap either
// domain.ErrMalformedPayload or domain.ErrUnrecognizedPayload.
func Interpret(text string) (domain.GazeEvent, error) {
	if !json.Valid([]byte(text)) {
		return domain.GazeEvent{}, domain.ErrMalformedPayload
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil || fields == nil {
		return domain.GazeEvent{}, fmt.Errorf("%w: not an object", domain.ErrUnrecognizedPayload)
	}

	var typ string
	if raw, ok := fields["type"]; !ok || json.Unmarshal(raw, &typ) != nil || typ != domain.GazeEventType {
		return domain.GazeEvent{}, fmt.Errorf("%w: type %s", domain.ErrUnrecognizedPayload, fields["type"])
	}

	var direction string
	if raw, ok := fields["direction"]; !ok || json.Unmarshal(raw, &direction) != nil || direction == "" {
		return domain.GazeEvent{}, fmt.Errorf("%w: missing direction", domain.ErrUnrecognizedPayload)
	}

	return domain.GazeEvent{Type: typ, Direction: direction}, nil
}
