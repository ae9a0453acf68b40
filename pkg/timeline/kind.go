package timeline

import "strconv"

// Kind identifies the type of a timeline record. The integer values are
// stable wire codes: captures serialized by one version of the agent must
// stay readable by later ones.
type Kind int

const (
	// KindUnknown covers record codes this engine does not recognize.
	// Unknown records are normalized and forwarded but otherwise ignored.
	KindUnknown Kind = 0

	// Timeline records emitted by the capture source.
	KindResourceWillSend        Kind = 1
	KindResourceResponse        Kind = 2
	KindResourceFinish          Kind = 3
	KindResourceSendRequest     Kind = 4
	KindResourceReceiveResponse Kind = 5
	KindNetworkResponseReceived Kind = 6
	KindNetworkDataReceived     Kind = 7

	// KindResourceUpdated is a batch update of one resource's lifecycle
	// milestones. It rides a separate channel from timeline records and
	// never establishes a session base time.
	KindResourceUpdated Kind = 8

	// KindTabChange is synthesized by the monitor when a main-resource
	// request signals a page transition. It never arrives raw.
	KindTabChange Kind = 9
)

var kindNames = map[Kind]string{
	KindResourceWillSend:        "RESOURCE_WILL_SEND",
	KindResourceResponse:        "RESOURCE_RESPONSE",
	KindResourceFinish:          "RESOURCE_FINISH",
	KindResourceSendRequest:     "RESOURCE_SEND_REQUEST",
	KindResourceReceiveResponse: "RESOURCE_RECEIVE_RESPONSE",
	KindNetworkResponseReceived: "NETWORK_RESPONSE_RECEIVED",
	KindNetworkDataReceived:     "NETWORK_DATA_RECEIVED",
	KindResourceUpdated:         "RESOURCE_UPDATED",
	KindTabChange:               "TAB_CHANGE",
}

// String returns the symbolic name for known kinds and the numeric code
// otherwise.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "KIND_" + strconv.Itoa(int(k))
}
