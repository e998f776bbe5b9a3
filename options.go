package mqtt

import (
	"time"

	"go.uber.org/zap"

	"github.com/go-mqtt/session/internal/wire"
	"github.com/go-mqtt/session/mqtt/store"
)

// CustomHandleAcks lets a caller override the reason code sent back for
// an inbound QoS1/QoS2 PUBLISH. The default policy always accepts with
// reason code 0.
type CustomHandleAcks func(topic string, payload []byte, p wire.Packet) (reasonCode wire.ReasonCode, err error)

// HandleMessageFunc is the overridable backpressure hook invoked for
// every inbound PUBLISH delivered to the application; done must be called
// to resume processing of the next inbound packet.
type HandleMessageFunc func(p wire.Packet, payload []byte, done func(error))

// HandleAuthFunc is the overridable v5 AUTH continuation hook.
type HandleAuthFunc func(p wire.Packet, respond func(out *wire.Packet, err error))

// Options is the Session configuration record, generalizing the
// ClientConfig/ClientOption pair (clientconfig.go) from a pair of byte
// buffers to the session's full set of configuration fields.
type Options struct {
	Keepalive        time.Duration `validate:"gte=0"`
	ReschedulePings  bool
	ProtocolVersion  int `validate:"oneof=3 4 5"`
	ReconnectPeriod  time.Duration `validate:"gte=0"`
	ConnectTimeout   time.Duration `validate:"gte=0"`
	Clean            bool
	Resubscribe      bool
	QueueQoSZero     bool
	ClientID         string `validate:"omitempty,max=65535"`
	Username         string
	Password         []byte
	WillTopic        string
	WillMessage      []byte
	WillQoS          wire.QoS
	WillRetain       bool

	CustomHandleAcks CustomHandleAcks
	HandleMessage    HandleMessageFunc
	HandleAuth       HandleAuthFunc

	MessageIDProvider *PacketIdProvider
	IncomingStore     store.Store
	OutgoingStore     store.Store

	TopicAliasMaximum    uint16
	AutoAssignTopicAlias bool
	AutoUseTopicAlias    bool

	Properties *wire.Properties
	AuthPacket *wire.Packet

	Logger      *zap.Logger
	Validate    bool
	RateLimiter *RateLimiter
}

// SessionOption mutates an Options record, in the functional-options
// style ClientOption uses (clientconfig.go).
type SessionOption func(*Options)

func WithKeepalive(d time.Duration) SessionOption {
	return func(o *Options) { o.Keepalive = d }
}

func WithReschedulePings(v bool) SessionOption {
	return func(o *Options) { o.ReschedulePings = v }
}

func WithProtocolVersion(v int) SessionOption {
	return func(o *Options) { o.ProtocolVersion = v }
}

func WithReconnectPeriod(d time.Duration) SessionOption {
	return func(o *Options) { o.ReconnectPeriod = d }
}

func WithConnectTimeout(d time.Duration) SessionOption {
	return func(o *Options) { o.ConnectTimeout = d }
}

func WithClean(v bool) SessionOption {
	return func(o *Options) { o.Clean = v }
}

func WithResubscribe(v bool) SessionOption {
	return func(o *Options) { o.Resubscribe = v }
}

func WithQueueQoSZero(v bool) SessionOption {
	return func(o *Options) { o.QueueQoSZero = v }
}

func WithClientID(id string) SessionOption {
	return func(o *Options) { o.ClientID = id }
}

func WithCredentials(username string, password []byte) SessionOption {
	return func(o *Options) { o.Username = username; o.Password = password }
}

func WithWill(topic string, message []byte, qos wire.QoS, retain bool) SessionOption {
	return func(o *Options) {
		o.WillTopic = topic
		o.WillMessage = message
		o.WillQoS = qos
		o.WillRetain = retain
	}
}

func WithCustomHandleAcks(f CustomHandleAcks) SessionOption {
	return func(o *Options) { o.CustomHandleAcks = f }
}

func WithHandleMessage(f HandleMessageFunc) SessionOption {
	return func(o *Options) { o.HandleMessage = f }
}

func WithHandleAuth(f HandleAuthFunc) SessionOption {
	return func(o *Options) { o.HandleAuth = f }
}

func WithStores(incoming, outgoing store.Store) SessionOption {
	return func(o *Options) { o.IncomingStore = incoming; o.OutgoingStore = outgoing }
}

func WithTopicAliasMaximum(max uint16) SessionOption {
	return func(o *Options) { o.TopicAliasMaximum = max }
}

func WithAutoAssignTopicAlias(v bool) SessionOption {
	return func(o *Options) { o.AutoAssignTopicAlias = v }
}

func WithAutoUseTopicAlias(v bool) SessionOption {
	return func(o *Options) { o.AutoUseTopicAlias = v }
}

func WithProperties(p *wire.Properties) SessionOption {
	return func(o *Options) { o.Properties = p }
}

func WithLogger(l *zap.Logger) SessionOption {
	return func(o *Options) { o.Logger = l }
}

func WithValidate(v bool) SessionOption {
	return func(o *Options) { o.Validate = v }
}

func WithRateLimiter(r *RateLimiter) SessionOption {
	return func(o *Options) { o.RateLimiter = r }
}
