package receiver

import "time"

// TrackInfoType identifies the metadata item carried by a TrackInfo.
type TrackInfoType int

const (
	// TrackName is the track title. Value is a string.
	TrackName TrackInfoType = iota
	// TrackArtist is the artist. Value is a string.
	TrackArtist
	// TrackAlbum is the album. Value is a string.
	TrackAlbum
	// TrackCover is the cover art image. Value is a []byte.
	TrackCover
	// TrackProgressDuration is the track length. Value is a time.Duration.
	TrackProgressDuration
	// TrackProgressPosition is the playback position. Value is a time.Duration.
	TrackProgressPosition
)

// String returns a human-readable name for the type.
func (t TrackInfoType) String() string {
	switch t {
	case TrackName:
		return "Name"
	case TrackArtist:
		return "Artist"
	case TrackAlbum:
		return "Album"
	case TrackCover:
		return "Cover"
	case TrackProgressDuration:
		return "ProgressDuration"
	case TrackProgressPosition:
		return "ProgressPosition"
	default:
		return "Unknown"
	}
}

// IsValid reports whether t is a known type.
func (t TrackInfoType) IsValid() bool {
	return t >= TrackName && t <= TrackProgressPosition
}

// TrackInfo is one metadata item about the track a sender is playing.
type TrackInfo struct {
	Type  TrackInfoType
	Value any
}

// IsValid reports whether Value has the Go type that Type requires.
func (i TrackInfo) IsValid() bool {
	switch i.Type {
	case TrackName, TrackArtist, TrackAlbum:
		_, ok := i.Value.(string)
		return ok
	case TrackCover:
		_, ok := i.Value.([]byte)
		return ok
	case TrackProgressDuration, TrackProgressPosition:
		d, ok := i.Value.(time.Duration)
		return ok && d >= 0
	default:
		return false
	}
}
