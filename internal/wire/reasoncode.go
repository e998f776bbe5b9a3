package wire

// ReasonCode unifies v3/v4's small CONNACK return-code enum and v5's
// broader per-packet reason-code range into one byte-sized type, since
// both occupy the same wire position and the session layer's error
// taxonomy table is keyed uniformly by this value.
type ReasonCode uint8

const (
	Success                         ReasonCode = 0x00
	NormalDisconnection              ReasonCode = 0x00
	GrantedQoS0                      ReasonCode = 0x00
	GrantedQoS1                      ReasonCode = 0x01
	GrantedQoS2                      ReasonCode = 0x02
	DisconnectWithWillMessage         ReasonCode = 0x04
	NoMatchingSubscribers             ReasonCode = 0x10
	NoSubscriptionExisted             ReasonCode = 0x11
	ContinueAuthentication            ReasonCode = 0x18
	ReAuthenticate                    ReasonCode = 0x19

	// v3/v4 CONNACK return codes, kept distinct from the v5 range by
	// convention only — callers must know the protocol version in use.
	V3UnacceptableProtocolVersion ReasonCode = 0x01
	V3IdentifierRejected         ReasonCode = 0x02
	V3ServerUnavailable          ReasonCode = 0x03
	V3BadUsernameOrPassword      ReasonCode = 0x04
	V3NotAuthorized              ReasonCode = 0x05

	UnspecifiedError              ReasonCode = 0x80
	MalformedPacket                ReasonCode = 0x81
	ProtocolError                  ReasonCode = 0x82
	ImplementationSpecificError    ReasonCode = 0x83
	UnsupportedProtocolVersion     ReasonCode = 0x84
	ClientIdentifierNotValid       ReasonCode = 0x85
	BadUserNameOrPassword          ReasonCode = 0x86
	NotAuthorized                  ReasonCode = 0x87
	ServerUnavailable              ReasonCode = 0x88
	ServerBusy                     ReasonCode = 0x89
	Banned                         ReasonCode = 0x8A
	ServerShuttingDown             ReasonCode = 0x8B
	BadAuthenticationMethod        ReasonCode = 0x8C
	KeepAliveTimeout               ReasonCode = 0x8D
	SessionTakenOver               ReasonCode = 0x8E
	TopicFilterInvalid             ReasonCode = 0x8F
	TopicNameInvalid               ReasonCode = 0x90
	PacketIdentifierInUse          ReasonCode = 0x91
	PacketIdentifierNotFound       ReasonCode = 0x92
	ReceiveMaximumExceeded         ReasonCode = 0x93
	TopicAliasInvalid              ReasonCode = 0x94
	PacketTooLarge                 ReasonCode = 0x95
	MessageRateTooHigh             ReasonCode = 0x96
	QuotaExceeded                  ReasonCode = 0x97
	AdministrativeAction           ReasonCode = 0x98
	PayloadFormatInvalid           ReasonCode = 0x99
	RetainNotSupported             ReasonCode = 0x9A
	QoSNotSupported                ReasonCode = 0x9B
	UseAnotherServer               ReasonCode = 0x9C
	ServerMoved                    ReasonCode = 0x9D
	SharedSubscriptionsNotSupported ReasonCode = 0x9E
	ConnectionRateExceeded         ReasonCode = 0x9F
	MaximumConnectTime             ReasonCode = 0xA0
	SubscriptionIdentifiersNotSupported ReasonCode = 0xA1
	WildcardSubscriptionsNotSupported   ReasonCode = 0xA2
)

// v3Strings and v5Strings are intentionally separate tables: the same
// numeric value means different things depending on protocol version
// (e.g. 0x04 is "bad username/password" in a v3 CONNACK but
// "disconnect with will message" in a v5 DISCONNECT).
var v3ConnackStrings = map[ReasonCode]string{
	Success:                       "connection accepted",
	V3UnacceptableProtocolVersion: "unacceptable protocol version",
	V3IdentifierRejected:         "client identifier rejected",
	V3ServerUnavailable:          "server unavailable",
	V3BadUsernameOrPassword:      "bad username and/or password",
	V3NotAuthorized:              "not authorized",
}

var v5Strings = map[ReasonCode]string{
	Success:                      "success",
	NoMatchingSubscribers:        "no matching subscribers",
	NoSubscriptionExisted:        "no subscription existed",
	ContinueAuthentication:       "continue authentication",
	ReAuthenticate:               "re-authenticate",
	UnspecifiedError:             "unspecified error",
	MalformedPacket:              "malformed packet",
	ProtocolError:                "protocol error",
	ImplementationSpecificError:  "implementation specific error",
	UnsupportedProtocolVersion:   "unsupported protocol version",
	ClientIdentifierNotValid:     "client identifier not valid",
	BadUserNameOrPassword:        "bad user name or password",
	NotAuthorized:                "not authorized",
	ServerUnavailable:            "server unavailable",
	ServerBusy:                   "server busy",
	Banned:                       "banned",
	ServerShuttingDown:           "server shutting down",
	BadAuthenticationMethod:      "bad authentication method",
	KeepAliveTimeout:             "keep alive timeout",
	SessionTakenOver:             "session taken over",
	TopicFilterInvalid:           "topic filter invalid",
	TopicNameInvalid:             "topic name invalid",
	PacketIdentifierInUse:        "packet identifier in use",
	PacketIdentifierNotFound:     "packet identifier not found",
	ReceiveMaximumExceeded:       "receive maximum exceeded",
	TopicAliasInvalid:            "topic alias invalid",
	PacketTooLarge:               "packet too large",
	MessageRateTooHigh:           "message rate too high",
	QuotaExceeded:                "quota exceeded",
	AdministrativeAction:         "administrative action",
	PayloadFormatInvalid:         "payload format invalid",
	RetainNotSupported:           "retain not supported",
	QoSNotSupported:              "QoS not supported",
	UseAnotherServer:             "use another server",
	ServerMoved:                  "server moved",
	SharedSubscriptionsNotSupported:     "shared subscriptions not supported",
	ConnectionRateExceeded:              "connection rate exceeded",
	MaximumConnectTime:                  "maximum connect time",
	SubscriptionIdentifiersNotSupported: "subscription identifiers not supported",
	WildcardSubscriptionsNotSupported:   "wildcard subscriptions not supported",
}

// String renders rc using the v5 table unless v3 is requested, in which
// case the much smaller CONNACK table is consulted instead.
func (rc ReasonCode) String() string {
	return rc.StringForVersion(5)
}

func (rc ReasonCode) StringForVersion(protocolVersion int) string {
	if protocolVersion < 5 {
		if s, ok := v3ConnackStrings[rc]; ok {
			return s
		}
		return "unknown CONNACK return code"
	}
	if s, ok := v5Strings[rc]; ok {
		return s
	}
	return "unknown v5 reason code"
}

// IsError reports whether rc signals failure. 0 is always success; for
// SUBACK grants 1 and 2 (QoS1/QoS2) are also success, handled by callers
// that mask the QoS bits before calling IsError on a plain ack.
func (rc ReasonCode) IsError() bool { return rc >= 0x80 }
