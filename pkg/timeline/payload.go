package timeline

import (
	"encoding/json"
	"strings"
)

// Payload is the kind-specific data carried by a Record. Concrete payload
// types are plain structs; components switch on them and ignore the ones
// they do not care about.
type Payload interface {
	payload()
}

// WillSendData is the payload of RESOURCE_WILL_SEND: a resource start as
// seen by the page instrumentation.
type WillSendData struct {
	Identifier     int64  `json:"identifier"`
	URL            string `json:"url"`
	RequestMethod  string `json:"requestMethod,omitempty"`
	IsMainResource bool   `json:"isMainResource"`
}

// ResponseData is the payload of RESOURCE_RESPONSE.
type ResponseData struct {
	Identifier int64 `json:"identifier"`
}

// SendRequestData is the payload of RESOURCE_SEND_REQUEST: the network
// stack's view of a request going out.
type SendRequestData struct {
	Identifier    int64  `json:"identifier"`
	URL           string `json:"url"`
	RequestMethod string `json:"requestMethod,omitempty"`
}

// ReceiveResponseData is the payload of RESOURCE_RECEIVE_RESPONSE.
type ReceiveResponseData struct {
	Identifier int64  `json:"identifier"`
	StatusCode int    `json:"statusCode"`
	MimeType   string `json:"mimeType"`
}

// NetworkResponse carries the response headers reported for a resource.
type NetworkResponse struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText,omitempty"`
	Headers    map[string]string `json:"headers"`
}

// Header looks up a response header by name, ignoring case on the name.
// Header values are returned verbatim.
func (r NetworkResponse) Header(name string) (string, bool) {
	if v, ok := r.Headers[name]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// NetworkResponseData is the payload of NETWORK_RESPONSE_RECEIVED.
type NetworkResponseData struct {
	Identifier int64           `json:"identifier"`
	Response   NetworkResponse `json:"response"`
}

// DataReceivedData is the payload of NETWORK_DATA_RECEIVED. A resource may
// be delivered in any number of chunks; DataLength is the size of one chunk.
type DataReceivedData struct {
	Identifier int64 `json:"identifier"`
	DataLength int64 `json:"dataLength"`
}

// FinishData is the payload of RESOURCE_FINISH.
type FinishData struct {
	Identifier int64 `json:"identifier"`
	DidFail    bool  `json:"didFail"`
}

// ResourceUpdateData is the payload of RESOURCE_UPDATED: a batch of lifecycle
// milestone timestamps for one resource. Milestones are absolute seconds as
// captured; the monitor rewrites them to relative milliseconds in place.
// A zero milestone means "not yet known".
type ResourceUpdateData struct {
	Identifier           int64   `json:"identifier"`
	DidTimingChange      bool    `json:"didTimingChange"`
	StartTime            float64 `json:"startTime,omitempty"`
	ResponseReceivedTime float64 `json:"responseReceivedTime,omitempty"`
	LoadEventTime        float64 `json:"loadEventTime,omitempty"`
	DomContentEventTime  float64 `json:"domContentEventTime,omitempty"`
	EndTime              float64 `json:"endTime,omitempty"`
}

// TabChangeData is the payload of the synthesized TAB_CHANGE record.
type TabChangeData struct {
	URL string `json:"url"`
}

// GenericData preserves the raw payload of unrecognized record kinds so they
// can pass through the pipeline unchanged.
type GenericData struct {
	Raw json.RawMessage
}

func (WillSendData) payload()        {}
func (ResponseData) payload()        {}
func (SendRequestData) payload()     {}
func (ReceiveResponseData) payload() {}
func (NetworkResponseData) payload() {}
func (DataReceivedData) payload()    {}
func (FinishData) payload()          {}
func (ResourceUpdateData) payload()  {}
func (TabChangeData) payload()       {}
func (GenericData) payload()         {}
