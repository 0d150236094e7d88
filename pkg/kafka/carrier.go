package kafka

import "github.com/segmentio/kafka-go"

// HeaderCarrier adapts kafka message headers to the OpenTelemetry
// TextMapCarrier interface.
type HeaderCarrier struct {
	Headers *[]kafka.Header
}

// Get returns the first header value for key.
func (c *HeaderCarrier) Get(key string) string {
	for _, h := range *c.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Set replaces or appends the header.
func (c *HeaderCarrier) Set(key, value string) {
	for i, h := range *c.Headers {
		if h.Key == key {
			(*c.Headers)[i].Value = []byte(value)
			return
		}
	}
	*c.Headers = append(*c.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

// Keys lists header keys.
func (c *HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.Headers))
	for _, h := range *c.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
