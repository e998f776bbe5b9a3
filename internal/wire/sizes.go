package wire

// propsWireSize returns the size a (possibly nil) property list occupies
// on the wire, including its own length prefix.
func propsWireSize(p *Properties) int {
	sz := p.Size()
	return varintSize(uint32(sz)) + sz
}

func (c *Connect) size(version int) int {
	sz := 6 + 1 + 1 + 2 // protocol name (6 = 2+len("MQTT")) + level + flags + keepalive
	if version >= 5 {
		sz += propsWireSize(c.Properties)
	}
	sz += stringSize(c.ClientID)
	if c.willFlag() {
		sz += stringSize(c.WillTopic) + binarySize(c.WillMessage)
		if version >= 5 {
			sz += propsWireSize(c.WillProperties)
		}
	}
	if c.Username != "" {
		sz += stringSize(c.Username)
		if len(c.Password) != 0 {
			sz += binarySize(c.Password)
		}
	}
	return sz
}

func (c *Connack) size(version int) int {
	sz := 2
	if version >= 5 {
		sz += propsWireSize(c.Properties)
	}
	return sz
}

func (p *Publish) size(version int) int {
	sz := stringSize(p.TopicName)
	if p.QoS != QoS0 {
		sz += 2
	}
	if version >= 5 {
		sz += propsWireSize(p.Properties)
	}
	return sz
}

func (a *Ack) size(version int, hasReasonCode bool) int {
	sz := 2
	if version >= 5 && hasReasonCode {
		sz++
		sz += propsWireSize(a.Properties)
	}
	return sz
}

func (s *Subscribe) size(version int) int {
	sz := 2
	if version >= 5 {
		sz += propsWireSize(s.Properties)
	}
	for _, f := range s.Filters {
		sz += stringSize(f.TopicFilter) + 1
	}
	return sz
}

func (s *Suback) size(version int) int {
	sz := 2
	if version >= 5 {
		sz += propsWireSize(s.Properties)
	}
	return sz + len(s.ReturnCodes)
}

func (u *Unsubscribe) size(version int) int {
	sz := 2
	if version >= 5 {
		sz += propsWireSize(u.Properties)
	}
	for _, t := range u.Topics {
		sz += stringSize(t)
	}
	return sz
}

func (u *Unsuback) size(version int) int {
	sz := 2
	if version >= 5 {
		sz += propsWireSize(u.Properties)
		sz += len(u.ReasonCodes)
	}
	return sz
}
