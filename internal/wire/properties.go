package wire

import (
	"bytes"
	"errors"
	"io"
)

// property identifiers, MQTT v5 section 2.2.2.2. Every identifier that
// section defines is implemented; an unknown identifier encountered
// while decoding is a protocol error rather than silently skipped,
// since skipping it would require knowing its wire width.
const (
	propPayloadFormatIndicator     = 1
	propMessageExpiryInterval      = 2
	propContentType                = 3
	propResponseTopic              = 8
	propCorrelationData            = 9
	propSubscriptionIdentifier     = 11
	propSessionExpiryInterval      = 17
	propAssignedClientIdentifier   = 18
	propServerKeepAlive            = 19
	propAuthenticationMethod       = 21
	propAuthenticationData         = 22
	propRequestProblemInformation  = 23
	propWillDelayInterval          = 24
	propRequestResponseInformation = 25
	propResponseInformation        = 26
	propServerReference            = 28
	propReasonString               = 31
	propReceiveMaximum             = 33
	propTopicAliasMaximum          = 34
	propTopicAlias                 = 35
	propMaximumQoS                 = 36
	propRetainAvailable            = 37
	propUserProperty               = 38
	propMaximumPacketSize          = 39
	propWildcardSubAvailable       = 40
	propSubscriptionIDAvailable    = 41
	propSharedSubAvailable         = 42
)

// UserProperty is a single v5 free-form name/value pair; a property list
// may repeat this identifier any number of times.
type UserProperty struct{ Key, Value string }

// Properties holds the v5 property list attached to most packet types.
// Every packet type only looks at the subset of fields relevant to it;
// zero value means absent (the codec omits absent fields on encode).
type Properties struct {
	PayloadFormatIndicator     *byte
	MessageExpiryInterval      *uint32
	ContentType                string
	ResponseTopic              string
	CorrelationData            []byte
	SubscriptionIdentifier     *uint32
	SessionExpiryInterval      *uint32
	AssignedClientIdentifier   string
	ServerKeepAlive            *uint16
	AuthenticationMethod       string
	AuthenticationData         []byte
	RequestProblemInformation  *byte
	WillDelayInterval          *uint32
	RequestResponseInformation *byte
	ResponseInformation        string
	ServerReference            string
	ReasonString               string
	ReceiveMaximum             *uint16
	TopicAliasMaximum          *uint16
	TopicAlias                 *uint16
	MaximumQoS                 *byte
	RetainAvailable            *byte
	MaximumPacketSize          *uint32
	WildcardSubAvailable       *byte
	SubscriptionIDAvailable    *byte
	SharedSubAvailable         *byte
	User                       []UserProperty
}

func u16p(v uint16) *uint16 { return &v }
func u32p(v uint32) *uint32 { return &v }
func bytep(v byte) *byte    { return &v }

// Size returns the encoded byte length of the property list body, not
// including the leading variable-byte-integer length prefix itself.
func (p *Properties) Size() int {
	if p == nil {
		return 0
	}
	n := 0
	if p.PayloadFormatIndicator != nil {
		n += 2
	}
	if p.MessageExpiryInterval != nil {
		n += 5
	}
	if p.ContentType != "" {
		n += 1 + stringSize(p.ContentType)
	}
	if p.ResponseTopic != "" {
		n += 1 + stringSize(p.ResponseTopic)
	}
	if p.CorrelationData != nil {
		n += 1 + binarySize(p.CorrelationData)
	}
	if p.SubscriptionIdentifier != nil {
		n += 1 + varintSize(*p.SubscriptionIdentifier)
	}
	if p.SessionExpiryInterval != nil {
		n += 5
	}
	if p.AssignedClientIdentifier != "" {
		n += 1 + stringSize(p.AssignedClientIdentifier)
	}
	if p.ServerKeepAlive != nil {
		n += 3
	}
	if p.AuthenticationMethod != "" {
		n += 1 + stringSize(p.AuthenticationMethod)
	}
	if p.AuthenticationData != nil {
		n += 1 + binarySize(p.AuthenticationData)
	}
	if p.RequestProblemInformation != nil {
		n += 2
	}
	if p.WillDelayInterval != nil {
		n += 5
	}
	if p.RequestResponseInformation != nil {
		n += 2
	}
	if p.ResponseInformation != "" {
		n += 1 + stringSize(p.ResponseInformation)
	}
	if p.ServerReference != "" {
		n += 1 + stringSize(p.ServerReference)
	}
	if p.ReasonString != "" {
		n += 1 + stringSize(p.ReasonString)
	}
	if p.ReceiveMaximum != nil {
		n += 3
	}
	if p.TopicAliasMaximum != nil {
		n += 3
	}
	if p.TopicAlias != nil {
		n += 3
	}
	if p.MaximumQoS != nil {
		n += 2
	}
	if p.RetainAvailable != nil {
		n += 2
	}
	if p.MaximumPacketSize != nil {
		n += 5
	}
	if p.WildcardSubAvailable != nil {
		n += 2
	}
	if p.SubscriptionIDAvailable != nil {
		n += 2
	}
	if p.SharedSubAvailable != nil {
		n += 2
	}
	for _, up := range p.User {
		n += 1 + stringSize(up.Key) + stringSize(up.Value)
	}
	return n
}

// Encode writes the variable-byte-integer length prefix followed by the
// property list body. A nil Properties encodes as a single zero byte
// (empty property list), matching v5's requirement that the length field
// always be present once a packet type supports properties.
func (p *Properties) Encode(w io.Writer) (int, error) {
	var buf bytes.Buffer
	if err := p.encodeBody(&buf); err != nil {
		return 0, err
	}
	var lenbuf [4]byte
	ln := encodeVarint(uint32(buf.Len()), lenbuf[:])
	n, err := writeFull(w, lenbuf[:ln])
	if err != nil {
		return n, err
	}
	n2, err := writeFull(w, buf.Bytes())
	return n + n2, err
}

func (p *Properties) encodeBody(w io.Writer) error {
	if p == nil {
		return nil
	}
	put := func(id byte) error { _, err := encodeByte(w, id); return err }
	var err error
	if p.PayloadFormatIndicator != nil {
		if err = put(propPayloadFormatIndicator); err != nil {
			return err
		}
		if _, err = encodeByte(w, *p.PayloadFormatIndicator); err != nil {
			return err
		}
	}
	if p.MessageExpiryInterval != nil {
		if err = put(propMessageExpiryInterval); err != nil {
			return err
		}
		if _, err = encodeUint32(w, *p.MessageExpiryInterval); err != nil {
			return err
		}
	}
	if p.ContentType != "" {
		if err = put(propContentType); err != nil {
			return err
		}
		if _, err = encodeString(w, p.ContentType); err != nil {
			return err
		}
	}
	if p.ResponseTopic != "" {
		if err = put(propResponseTopic); err != nil {
			return err
		}
		if _, err = encodeString(w, p.ResponseTopic); err != nil {
			return err
		}
	}
	if p.CorrelationData != nil {
		if err = put(propCorrelationData); err != nil {
			return err
		}
		if _, err = encodeBinary(w, p.CorrelationData); err != nil {
			return err
		}
	}
	if p.SubscriptionIdentifier != nil {
		if err = put(propSubscriptionIdentifier); err != nil {
			return err
		}
		var vb [4]byte
		n := encodeVarint(*p.SubscriptionIdentifier, vb[:])
		if _, err = writeFull(w, vb[:n]); err != nil {
			return err
		}
	}
	if p.SessionExpiryInterval != nil {
		if err = put(propSessionExpiryInterval); err != nil {
			return err
		}
		if _, err = encodeUint32(w, *p.SessionExpiryInterval); err != nil {
			return err
		}
	}
	if p.AssignedClientIdentifier != "" {
		if err = put(propAssignedClientIdentifier); err != nil {
			return err
		}
		if _, err = encodeString(w, p.AssignedClientIdentifier); err != nil {
			return err
		}
	}
	if p.ServerKeepAlive != nil {
		if err = put(propServerKeepAlive); err != nil {
			return err
		}
		if _, err = encodeUint16(w, *p.ServerKeepAlive); err != nil {
			return err
		}
	}
	if p.AuthenticationMethod != "" {
		if err = put(propAuthenticationMethod); err != nil {
			return err
		}
		if _, err = encodeString(w, p.AuthenticationMethod); err != nil {
			return err
		}
	}
	if p.AuthenticationData != nil {
		if err = put(propAuthenticationData); err != nil {
			return err
		}
		if _, err = encodeBinary(w, p.AuthenticationData); err != nil {
			return err
		}
	}
	if p.RequestProblemInformation != nil {
		if err = put(propRequestProblemInformation); err != nil {
			return err
		}
		if _, err = encodeByte(w, *p.RequestProblemInformation); err != nil {
			return err
		}
	}
	if p.WillDelayInterval != nil {
		if err = put(propWillDelayInterval); err != nil {
			return err
		}
		if _, err = encodeUint32(w, *p.WillDelayInterval); err != nil {
			return err
		}
	}
	if p.RequestResponseInformation != nil {
		if err = put(propRequestResponseInformation); err != nil {
			return err
		}
		if _, err = encodeByte(w, *p.RequestResponseInformation); err != nil {
			return err
		}
	}
	if p.ResponseInformation != "" {
		if err = put(propResponseInformation); err != nil {
			return err
		}
		if _, err = encodeString(w, p.ResponseInformation); err != nil {
			return err
		}
	}
	if p.ServerReference != "" {
		if err = put(propServerReference); err != nil {
			return err
		}
		if _, err = encodeString(w, p.ServerReference); err != nil {
			return err
		}
	}
	if p.ReasonString != "" {
		if err = put(propReasonString); err != nil {
			return err
		}
		if _, err = encodeString(w, p.ReasonString); err != nil {
			return err
		}
	}
	if p.ReceiveMaximum != nil {
		if err = put(propReceiveMaximum); err != nil {
			return err
		}
		if _, err = encodeUint16(w, *p.ReceiveMaximum); err != nil {
			return err
		}
	}
	if p.TopicAliasMaximum != nil {
		if err = put(propTopicAliasMaximum); err != nil {
			return err
		}
		if _, err = encodeUint16(w, *p.TopicAliasMaximum); err != nil {
			return err
		}
	}
	if p.TopicAlias != nil {
		if err = put(propTopicAlias); err != nil {
			return err
		}
		if _, err = encodeUint16(w, *p.TopicAlias); err != nil {
			return err
		}
	}
	if p.MaximumQoS != nil {
		if err = put(propMaximumQoS); err != nil {
			return err
		}
		if _, err = encodeByte(w, *p.MaximumQoS); err != nil {
			return err
		}
	}
	if p.RetainAvailable != nil {
		if err = put(propRetainAvailable); err != nil {
			return err
		}
		if _, err = encodeByte(w, *p.RetainAvailable); err != nil {
			return err
		}
	}
	if p.MaximumPacketSize != nil {
		if err = put(propMaximumPacketSize); err != nil {
			return err
		}
		if _, err = encodeUint32(w, *p.MaximumPacketSize); err != nil {
			return err
		}
	}
	if p.WildcardSubAvailable != nil {
		if err = put(propWildcardSubAvailable); err != nil {
			return err
		}
		if _, err = encodeByte(w, *p.WildcardSubAvailable); err != nil {
			return err
		}
	}
	if p.SubscriptionIDAvailable != nil {
		if err = put(propSubscriptionIDAvailable); err != nil {
			return err
		}
		if _, err = encodeByte(w, *p.SubscriptionIDAvailable); err != nil {
			return err
		}
	}
	if p.SharedSubAvailable != nil {
		if err = put(propSharedSubAvailable); err != nil {
			return err
		}
		if _, err = encodeByte(w, *p.SharedSubAvailable); err != nil {
			return err
		}
	}
	for _, up := range p.User {
		if err = put(propUserProperty); err != nil {
			return err
		}
		if _, err = encodeString(w, up.Key); err != nil {
			return err
		}
		if _, err = encodeString(w, up.Value); err != nil {
			return err
		}
	}
	return nil
}

// DecodeProperties reads a length-prefixed property list from r.
func DecodeProperties(r io.Reader) (*Properties, int, error) {
	length, n, err := decodeVarint(r)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	lr := io.LimitReader(r, int64(length))
	p := &Properties{}
	read := 0
	for read < int(length) {
		id, err := decodeByte(lr)
		if err != nil {
			return nil, n, err
		}
		read++
		switch id {
		case propPayloadFormatIndicator:
			v, err := decodeByte(lr)
			if err != nil {
				return nil, n, err
			}
			read++
			p.PayloadFormatIndicator = bytep(v)
		case propMessageExpiryInterval:
			v, ngot, err := decodeUint32(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.MessageExpiryInterval = u32p(v)
		case propContentType:
			v, ngot, err := decodeString(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.ContentType = v
		case propResponseTopic:
			v, ngot, err := decodeString(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.ResponseTopic = v
		case propCorrelationData:
			v, ngot, err := decodeBinary(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.CorrelationData = v
		case propSubscriptionIdentifier:
			v, ngot, err := decodeVarint(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.SubscriptionIdentifier = u32p(v)
		case propSessionExpiryInterval:
			v, ngot, err := decodeUint32(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.SessionExpiryInterval = u32p(v)
		case propAssignedClientIdentifier:
			v, ngot, err := decodeString(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.AssignedClientIdentifier = v
		case propServerKeepAlive:
			v, ngot, err := decodeUint16(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.ServerKeepAlive = u16p(v)
		case propAuthenticationMethod:
			v, ngot, err := decodeString(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.AuthenticationMethod = v
		case propAuthenticationData:
			v, ngot, err := decodeBinary(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.AuthenticationData = v
		case propRequestProblemInformation:
			v, err := decodeByte(lr)
			if err != nil {
				return nil, n, err
			}
			read++
			p.RequestProblemInformation = bytep(v)
		case propWillDelayInterval:
			v, ngot, err := decodeUint32(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.WillDelayInterval = u32p(v)
		case propRequestResponseInformation:
			v, err := decodeByte(lr)
			if err != nil {
				return nil, n, err
			}
			read++
			p.RequestResponseInformation = bytep(v)
		case propResponseInformation:
			v, ngot, err := decodeString(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.ResponseInformation = v
		case propServerReference:
			v, ngot, err := decodeString(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.ServerReference = v
		case propReasonString:
			v, ngot, err := decodeString(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.ReasonString = v
		case propReceiveMaximum:
			v, ngot, err := decodeUint16(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.ReceiveMaximum = u16p(v)
		case propTopicAliasMaximum:
			v, ngot, err := decodeUint16(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.TopicAliasMaximum = u16p(v)
		case propTopicAlias:
			v, ngot, err := decodeUint16(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.TopicAlias = u16p(v)
		case propMaximumQoS:
			v, err := decodeByte(lr)
			if err != nil {
				return nil, n, err
			}
			read++
			p.MaximumQoS = bytep(v)
		case propRetainAvailable:
			v, err := decodeByte(lr)
			if err != nil {
				return nil, n, err
			}
			read++
			p.RetainAvailable = bytep(v)
		case propMaximumPacketSize:
			v, ngot, err := decodeUint32(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.MaximumPacketSize = u32p(v)
		case propWildcardSubAvailable:
			v, err := decodeByte(lr)
			if err != nil {
				return nil, n, err
			}
			read++
			p.WildcardSubAvailable = bytep(v)
		case propSubscriptionIDAvailable:
			v, err := decodeByte(lr)
			if err != nil {
				return nil, n, err
			}
			read++
			p.SubscriptionIDAvailable = bytep(v)
		case propSharedSubAvailable:
			v, err := decodeByte(lr)
			if err != nil {
				return nil, n, err
			}
			read++
			p.SharedSubAvailable = bytep(v)
		case propUserProperty:
			k, ngot, err := decodeString(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			v, ngot, err := decodeString(lr)
			read += ngot
			if err != nil {
				return nil, n, err
			}
			p.User = append(p.User, UserProperty{Key: k, Value: v})
		default:
			return nil, n, errors.New("wire: unknown v5 property identifier")
		}
	}
	return p, n + read, nil
}
