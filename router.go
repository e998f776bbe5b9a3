package mqtt

import (
	"errors"
	"strings"
	"sync"
)

// MessageHandler is invoked for an inbound PUBLISH matching a registered
// topic filter.
type MessageHandler func(topic string, payload []byte)

// Router dispatches inbound PUBLISH topics to the per-filter callbacks
// registered via Subscribe's map form. Adapted from SubscriptionsMap
// (subscriptions.go: matches/validateWildcards), generalized from a set
// of bare topic strings to a filter->handler map so that multiple
// concurrent Subscribe calls can each fan an inbound PUBLISH out to
// their own local handler.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]MessageHandler
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]MessageHandler)}
}

// On registers handler for topicFilter, replacing any previous handler
// for the same exact filter string.
func (r *Router) On(topicFilter string, handler MessageHandler) error {
	if err := validateWildcards(strings.Split(topicFilter, "/")); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topicFilter] = handler
	return nil
}

// Off removes the handler registered for topicFilter.
func (r *Router) Off(topicFilter string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, topicFilter)
}

// Dispatch invokes every registered handler whose filter matches topic.
func (r *Router) Dispatch(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	r.mu.RLock()
	defer r.mu.RUnlock()
	for filter, handler := range r.handlers {
		if filter == topic || topicMatches(strings.Split(filter, "/"), parts) {
			handler(topic, payload)
		}
	}
}

func topicMatches(filter, topicParts []string) bool {
	i := 0
	for i < len(topicParts) {
		if i >= len(filter) {
			return false
		}
		if filter[i] == "#" {
			return true
		}
		if topicParts[i] != filter[i] && filter[i] != "+" {
			return false
		}
		i++
	}
	return i == len(filter)-1 && filter[len(filter)-1] == "#" || i == len(filter)
}

func isWildcardPart(part string) bool {
	return strings.IndexByte(part, '#') >= 0 || strings.IndexByte(part, '+') >= 0
}

func validateWildcards(parts []string) error {
	for i, part := range parts {
		if isWildcardPart(part) && len(part) != 1 {
			return errors.New("mqtt: malformed wildcard of style \"finance#\"")
		}
		isSingleHash := len(part) == 1 && part[0] == '#'
		if isSingleHash && i != len(parts)-1 {
			return errors.New("mqtt: \"#\" must be the last topic level")
		}
	}
	return nil
}
