package history

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"
)

// Payload is an orchestration request as delivered by the host transport.
type Payload struct {
	InstanceID string
	Input      string
	Log        *Log
}

// Decode parses a host payload. It accepts either a bare JSON array of
// events or an object carrying "history", "instanceId" and "input".
// Field names are matched in PascalCase or camelCase, and event types may
// be numeric or named.
func Decode(data []byte) (*Payload, error) {
	root, err := gabs.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing history payload: %w", err)
	}

	payload := &Payload{}
	eventsNode := root
	if _, isArray := root.Data().([]any); !isArray {
		eventsNode = lookup(root, "History")
		if eventsNode == nil {
			return nil, fmt.Errorf("history payload has no history array")
		}
		payload.InstanceID = stringField(root, "InstanceId")
		payload.Input = stringField(root, "Input")
	}

	events, err := DecodeEvents(eventsNode)
	if err != nil {
		return nil, err
	}
	payload.Log = NewLog(events...)

	if payload.Input == "" {
		payload.Input, _ = payload.Log.Input()
	}

	return payload, nil
}

// DecodeEvents converts a JSON array container into events, in order.
func DecodeEvents(c *gabs.Container) ([]Event, error) {
	if _, ok := c.Data().([]any); !ok {
		return nil, fmt.Errorf("history must be an array, got %T", c.Data())
	}

	children := c.Children()
	events := make([]Event, 0, len(children))
	for i, child := range children {
		e, err := decodeEvent(child)
		if err != nil {
			return nil, fmt.Errorf("error decoding history event %d: %w", i, err)
		}
		events = append(events, e)
	}
	return events, nil
}

func decodeEvent(c *gabs.Container) (Event, error) {
	var e Event

	kindNode := lookup(c, "EventType")
	if kindNode == nil {
		return e, fmt.Errorf("missing EventType")
	}
	kind, err := decodeKind(kindNode.Data())
	if err != nil {
		return e, err
	}
	e.Kind = kind

	if e.EventID, err = intField(c, "EventId"); err != nil {
		return e, err
	}
	if e.TaskScheduledID, err = intField(c, "TaskScheduledId"); err != nil {
		return e, err
	}
	if e.TimerID, err = intField(c, "TimerId"); err != nil {
		return e, err
	}

	e.Name = stringField(c, "Name")
	e.Input = stringField(c, "Input")
	e.Result = stringField(c, "Result")
	e.Reason = stringField(c, "Reason")
	e.Details = stringField(c, "Details")

	if played, ok := lookupData(c, "IsPlayed").(bool); ok {
		e.IsPlayed = played
	}

	if ts := stringField(c, "Timestamp"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return e, fmt.Errorf("invalid Timestamp %q: %w", ts, err)
		}
		e.Timestamp = t
	}

	return e, nil
}

func decodeKind(v any) (Kind, error) {
	switch k := v.(type) {
	case string:
		if n, err := strconv.Atoi(k); err == nil {
			return Kind(n), nil
		}
		return ParseKind(k)
	default:
		n, err := toInt(v)
		if err != nil {
			return 0, fmt.Errorf("invalid EventType: %w", err)
		}
		return Kind(n), nil
	}
}

// lookup finds key in PascalCase first, then camelCase.
func lookup(c *gabs.Container, key string) *gabs.Container {
	if child := c.Search(key); child != nil {
		return child
	}
	return c.Search(strings.ToLower(key[:1]) + key[1:])
}

func lookupData(c *gabs.Container, key string) any {
	child := lookup(c, key)
	if child == nil {
		return nil
	}
	return child.Data()
}

// stringField returns strings verbatim and re-encodes any other JSON value,
// so structured activity results survive as their serialized form.
func stringField(c *gabs.Container, key string) string {
	child := lookup(c, key)
	if child == nil || child.Data() == nil {
		return ""
	}
	if s, ok := child.Data().(string); ok {
		return s
	}
	return child.String()
}

func intField(c *gabs.Container, key string) (int, error) {
	v := lookupData(c, key)
	if v == nil {
		return 0, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
