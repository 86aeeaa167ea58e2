package eventlog

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/wxcache/weather-service/internal/weather"
)

// Event items use a closed mapping from field type to attribute variant:
// strings and timestamps are S, numbers are N, booleans are BOOL. Absent
// optional fields are omitted from the item entirely, never stored as null.

func marshalEvent(e weather.Event) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"event_id":         &types.AttributeValueMemberS{Value: e.ID},
		"city":             &types.AttributeValueMemberS{Value: e.City},
		"timestamp":        &types.AttributeValueMemberS{Value: e.Timestamp.Format(time.RFC3339Nano)},
		"s3_path":          &types.AttributeValueMemberS{Value: e.Location},
		"response_time_ms": &types.AttributeValueMemberN{Value: formatFloat(e.LatencyMS)},
		"cached":           &types.AttributeValueMemberBOOL{Value: e.Cached},
	}
	if e.Error != "" {
		item["error"] = &types.AttributeValueMemberS{Value: e.Error}
	}
	return item
}

func unmarshalEvent(item map[string]types.AttributeValue) (weather.Event, error) {
	var e weather.Event

	var err error
	if e.ID, err = stringAttr(item, "event_id"); err != nil {
		return weather.Event{}, err
	}
	if e.City, err = stringAttr(item, "city"); err != nil {
		return weather.Event{}, err
	}

	ts, err := stringAttr(item, "timestamp")
	if err != nil {
		return weather.Event{}, err
	}
	if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return weather.Event{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}

	if e.Location, err = stringAttr(item, "s3_path"); err != nil {
		return weather.Event{}, err
	}

	n, err := numberAttr(item, "response_time_ms")
	if err != nil {
		return weather.Event{}, err
	}
	e.LatencyMS = n

	if b, ok := item["cached"].(*types.AttributeValueMemberBOOL); ok {
		e.Cached = b.Value
	}
	if s, ok := item["error"].(*types.AttributeValueMemberS); ok {
		e.Error = s.Value
	}

	return e, nil
}

func stringAttr(item map[string]types.AttributeValue, key string) (string, error) {
	s, ok := item[key].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("missing or non-string attribute %q", key)
	}
	return s.Value, nil
}

func numberAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	n, ok := item[key].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("missing or non-numeric attribute %q", key)
	}
	v, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric attribute %q: %w", key, err)
	}
	return v, nil
}

// formatFloat produces the shortest representation that parses back to the
// same float64.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
