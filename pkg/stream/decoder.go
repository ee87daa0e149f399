package stream

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/papercomputeco/rehearse/pkg/sse"
	"github.com/papercomputeco/rehearse/pkg/utils"
)

// maxLoggedLine caps how much of a malformed line is logged.
const maxLoggedLine = 256

// Stats counts what a Decoder has seen so far.
type Stats struct {
	// Lines is the number of complete lines read, frames or not.
	Lines int

	// Frames is the number of event frames decoded into records.
	Frames int

	// Dropped is the number of event frames skipped for a malformed payload.
	Dropped int

	// Discarded is the byte length of the unterminated remainder dropped at
	// end of stream. Non-zero usually means the upstream cut a frame short.
	Discarded int
}

// Decoder pulls records off a line reader. Malformed frames are logged and
// skipped; they never end the stream.
type Decoder struct {
	reader *sse.TeeReader
	logger *slog.Logger
	stats  Stats
}

// NewDecoder returns a Decoder reading lines from r.
func NewDecoder(r *sse.TeeReader, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Decoder{reader: r, logger: logger}
}

// Next blocks until the next record is decoded. It returns io.EOF at the end
// of the stream and the transport error if the source fails.
func (d *Decoder) Next() (Record, error) {
	for {
		line, err := d.reader.Next()
		if err != nil {
			d.stats.Discarded = d.reader.Discarded()
			if d.stats.Discarded > 0 {
				d.logger.Warn("dropping unterminated trailing line",
					"bytes", d.stats.Discarded,
				)
			}
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, err
		}
		d.stats.Lines++

		data, ok := sse.Frame(line)
		if !ok {
			continue
		}

		payload, err := decodePayload(data)
		if err != nil {
			d.stats.Dropped++
			d.logger.Warn("skipping malformed frame",
				"error", err,
				"line", utils.Truncate(line, maxLoggedLine),
			)
			continue
		}

		d.stats.Frames++
		return Classify(payload), nil
	}
}

// Stats returns a copy of the decoder counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

var errNotObject = errors.New("payload is not a JSON object")

func decodePayload(data string) (Payload, error) {
	// json.Unmarshal accepts "null" into a struct; only objects are frames.
	if !strings.HasPrefix(strings.TrimSpace(data), "{") {
		return Payload{}, errNotObject
	}

	var p Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Payload{}, err
	}
	return p, nil
}
