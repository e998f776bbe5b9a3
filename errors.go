package mqtt

import (
	"fmt"

	"github.com/go-mqtt/session/internal/wire"
)

// Error is a session-level error tagged with the protocol reason/return
// code that produced it, in the style of the ConnectReturnCode.String()
// table (clientstate.go), generalized to the full v5 reason code range.
type Error struct {
	Code wire.ReasonCode
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newReasonError(rc wire.ReasonCode, version int) *Error {
	return &Error{Code: rc, Msg: rc.StringForVersion(version)}
}

func newError(code wire.ReasonCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Sentinel lifecycle/validation errors, matched by value with errors.Is.
var (
	ErrDisconnecting        = fmt.Errorf("mqtt: client disconnecting")
	ErrConnectionClosed     = fmt.Errorf("mqtt: connection closed")
	ErrNoConnection         = fmt.Errorf("mqtt: no connection to broker")
	ErrMessageRemoved       = fmt.Errorf("mqtt: message removed")
	ErrTopicAliasOutOfRange = fmt.Errorf("mqtt: sending topic alias out of range")
	ErrUnregisteredAlias    = fmt.Errorf("mqtt: unregistered topic alias")
	ErrReceivedAliasOutOfRange = fmt.Errorf("mqtt: received topic alias is out of range")
	ErrReceivedUnregisteredAlias = fmt.Errorf("mqtt: received unregistered topic alias")
	ErrIDsExhausted         = fmt.Errorf("mqtt: packet identifier pool exhausted")
	ErrInvalidTopic         = fmt.Errorf("mqtt: invalid topic")
	ErrAuthNotV5            = fmt.Errorf("mqtt: AUTH requires protocol version 5")
	ErrPacketTooLarge       = fmt.Errorf("mqtt: exceeding packets size publish")
	ErrAlreadyEnded         = fmt.Errorf("mqtt: session already ended")
)

// customHandleAcksReasonCodes is the set of v5 reason codes a
// customHandleAcks policy function may legally return for an inbound
// QoS1/QoS2 PUBLISH without the session treating it as a hard protocol
// error.
var customHandleAcksReasonCodes = map[wire.ReasonCode]bool{
	wire.Success:                   true,
	0x10:                           true, // NoMatchingSubscribers
	0x80:                           true, // UnspecifiedError
	0x83:                           true, // ImplementationSpecificError
	0x87:                           true, // NotAuthorized
	0x90:                           true, // TopicNameInvalid
	0x91:                           true, // PacketIdentifierInUse
	0x97:                           true, // QuotaExceeded
	0x99:                           true, // PayloadFormatInvalid
}

func isAllowedAckReasonCode(rc wire.ReasonCode) bool {
	return customHandleAcksReasonCodes[rc]
}
