package stream

type MessageWriter = messageWriter

func NewWithWriter(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}
