package fizzy

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// FlexTime is a timestamp the API sends either as a date, a full
// timestamp, or a free-form string. Raw always holds what was received;
// Time is set when Raw could be parsed.
type FlexTime struct {
	Time time.Time
	Raw  string
}

// IsZero reports whether no parseable time was received.
func (t FlexTime) IsZero() bool {
	return t.Time.IsZero()
}

// String returns the raw value.
func (t FlexTime) String() string {
	return t.Raw
}

// UnmarshalJSON accepts null, strings and any format dateparse understands.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = FlexTime{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = FlexTime{Raw: raw}

	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if parsed, err := dateparse.ParseIn(raw, time.UTC); err == nil {
		t.Time = parsed
	}
	return nil
}

// MarshalJSON writes the raw value back.
func (t FlexTime) MarshalJSON() ([]byte, error) {
	if t.Raw == "" && !t.Time.IsZero() {
		return json.Marshal(t.Time.Format(time.RFC3339))
	}
	return json.Marshal(t.Raw)
}
