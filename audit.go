package farmAuth

import (
	"io"

	internalaudit "github.com/MrEthical07/farmAuth/internal/audit"
	"github.com/sirupsen/logrus"
)

// NewChannelSink returns a sink that forwards events into a channel of the
// given capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogSink returns a sink that logs events through logger. A nil logger
// selects logrus.StandardLogger().
func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return internalaudit.NewLogSink(logger)
}
