package timeline

import (
	"encoding/json"
	"fmt"
	"math"
)

// Record is one timeline event. Raw records carry an absolute capture
// timestamp in StartTime (seconds); Time stays NaN until the monitor
// normalizes the record, after which it holds milliseconds relative to the
// session base time. Once normalized a record is never mutated again.
type Record struct {
	Type      Kind
	Sequence  int64
	StartTime float64
	Time      float64
	Data      Payload
}

// NewRaw builds an un-normalized record as delivered by the capture source.
func NewRaw(kind Kind, sequence int64, startTime float64, data Payload) *Record {
	return &Record{
		Type:      kind,
		Sequence:  sequence,
		StartTime: startTime,
		Time:      math.NaN(),
		Data:      data,
	}
}

// Normalized reports whether the record's Time has been rewritten to
// session-relative milliseconds.
func (r *Record) Normalized() bool {
	return !math.IsNaN(r.Time)
}

// Identifier returns the resource identifier carried by the payload, if the
// record kind has one. Identifiers are unique only within a session and are
// reused across page loads.
func (r *Record) Identifier() (int64, bool) {
	switch d := r.Data.(type) {
	case WillSendData:
		return d.Identifier, true
	case ResponseData:
		return d.Identifier, true
	case SendRequestData:
		return d.Identifier, true
	case ReceiveResponseData:
		return d.Identifier, true
	case NetworkResponseData:
		return d.Identifier, true
	case DataReceivedData:
		return d.Identifier, true
	case FinishData:
		return d.Identifier, true
	case ResourceUpdateData:
		return d.Identifier, true
	}
	return 0, false
}

// wireRecord is the devtools-style JSON shape:
// {"type":N,"sequence":n,"time":t,"startTime":s,"data":{...}}.
type wireRecord struct {
	Type      int             `json:"type"`
	Sequence  int64           `json:"sequence"`
	Time      *float64        `json:"time,omitempty"`
	StartTime *float64        `json:"startTime,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// UnmarshalJSON decodes a wire record, selecting the payload type from the
// kind code. Unknown codes keep their raw payload in GenericData.
func (r *Record) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("timeline: decode record: %w", err)
	}

	r.Type = Kind(w.Type)
	r.Sequence = w.Sequence
	r.Time = math.NaN()
	if w.Time != nil {
		r.Time = *w.Time
	}
	r.StartTime = 0
	if w.StartTime != nil {
		r.StartTime = *w.StartTime
	} else if w.Time != nil {
		// Captures predating the startTime field carried the absolute
		// timestamp in "time".
		r.StartTime = *w.Time
	}

	data, err := decodePayload(r.Type, w.Data)
	if err != nil {
		return fmt.Errorf("timeline: decode %s payload (sequence %d): %w", r.Type, r.Sequence, err)
	}
	r.Data = data
	return nil
}

// MarshalJSON encodes the record back to the wire shape. NaN times are
// omitted rather than emitted as invalid JSON.
func (r *Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		Type:     int(r.Type),
		Sequence: r.Sequence,
	}
	if !math.IsNaN(r.Time) {
		t := r.Time
		w.Time = &t
	}
	if r.StartTime != 0 {
		s := r.StartTime
		w.StartTime = &s
	}

	switch d := r.Data.(type) {
	case nil:
	case GenericData:
		w.Data = d.Raw
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("timeline: encode %s payload: %w", r.Type, err)
		}
		w.Data = b
	}
	return json.Marshal(w)
}

func decodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var dst Payload
	switch kind {
	case KindResourceWillSend:
		dst = &WillSendData{}
	case KindResourceResponse:
		dst = &ResponseData{}
	case KindResourceSendRequest:
		dst = &SendRequestData{}
	case KindResourceReceiveResponse:
		dst = &ReceiveResponseData{}
	case KindNetworkResponseReceived:
		dst = &NetworkResponseData{}
	case KindNetworkDataReceived:
		dst = &DataReceivedData{}
	case KindResourceFinish:
		dst = &FinishData{}
	case KindResourceUpdated:
		dst = &ResourceUpdateData{}
	case KindTabChange:
		dst = &TabChangeData{}
	default:
		return GenericData{Raw: append(json.RawMessage(nil), raw...)}, nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, err
	}

	switch p := dst.(type) {
	case *WillSendData:
		return *p, nil
	case *ResponseData:
		return *p, nil
	case *SendRequestData:
		return *p, nil
	case *ReceiveResponseData:
		return *p, nil
	case *NetworkResponseData:
		return *p, nil
	case *DataReceivedData:
		return *p, nil
	case *FinishData:
		return *p, nil
	case *ResourceUpdateData:
		return *p, nil
	case *TabChangeData:
		return *p, nil
	}
	return nil, fmt.Errorf("unhandled payload type for kind %s", kind)
}
