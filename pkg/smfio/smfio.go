// Package smfio reads Standard MIDI Files into the track/event shape the
// melody extractor consumes. It is the only package that touches the MIDI
// wire format.
package smfio

import (
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/matzehuels/punchroll/pkg/errors"
	"github.com/matzehuels/punchroll/pkg/melody"
)

// ReadFile parses the MIDI file at path.
func ReadFile(path string) ([]melody.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "midi file %q not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "cannot open midi file %q", path)
	}
	defer f.Close()

	tracks, err := Read(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "cannot parse midi file %q", path)
	}
	return tracks, nil
}

// Read parses a Standard MIDI File from r. Note-ons keep their raw velocity;
// a velocity of zero means note end by MIDI convention and is filtered
// downstream, not here. Tempo is ignored: punch spacing follows raw ticks.
func Read(r io.Reader) ([]melody.Track, error) {
	data, err := smf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid midi data")
	}

	tracks := make([]melody.Track, len(data.Tracks))
	for i, src := range data.Tracks {
		tracks[i] = convertTrack(src)
	}
	return tracks, nil
}

func convertTrack(src smf.Track) melody.Track {
	track := melody.Track{Events: make([]melody.Event, 0, len(src))}

	for _, ev := range src {
		out := melody.Event{Delta: int64(ev.Delta), Type: melody.EventOther}

		var channel, key, velocity uint8
		var name string
		switch {
		case ev.Message.GetNoteOn(&channel, &key, &velocity):
			out.Type = melody.EventNoteOn
			out.Pitch = int(key)
			out.Velocity = int(velocity)
		case ev.Message.GetNoteOff(&channel, &key, &velocity):
			out.Type = melody.EventNoteOff
			out.Pitch = int(key)
		case ev.Message.GetMetaTrackName(&name):
			track.Name = name
		}

		track.Events = append(track.Events, out)
	}

	return track
}
