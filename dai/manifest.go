// Package dai is an ads plugin for streams with server-side stitched ads.
//
// Ad breaks are read from the SCTE-35 markers of an HLS media playlist, so the
// content engine plays ads and content from one stream and the plugin only
// keeps track of where the breaks are.
package dai

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/anisan-cli/adplay/cuepoint"
	"github.com/grafov/m3u8"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ErrNotMediaPlaylist is returned for master playlists.
var ErrNotMediaPlaylist = errors.New("expected a media playlist")

// durationEpsilon absorbs rounding in EXTINF durations.
const durationEpsilon = 0.001

const (
	tagOATCLS     = "#EXT-OATCLS-SCTE35:"
	tagCueOut     = "#EXT-X-CUE-OUT"
	tagCueOutCont = "#EXT-X-CUE-OUT-CONT"
	tagCueIn      = "#EXT-X-CUE-IN"
)

// Marker is the raw SCTE-35 data of one ad break.
type Marker struct {
	Start float64
	ID    string
	Cue   string
}

// Manifest is what the plugin needs from a stitched playlist.
type Manifest struct {
	CuePoints cuepoint.Set
	Markers   []Marker
	// Duration of the whole stream, ads included.
	Duration float64
}

// ContentDuration is Duration without the ad breaks.
func (m Manifest) ContentDuration() float64 {
	ads := lo.SumBy(m.CuePoints.All(), func(c cuepoint.CuePoint) float64 { return c.Duration() })
	return m.Duration - ads
}

type openBreak struct {
	start    float64
	declared float64
}

// ParseManifest decodes an HLS media playlist and returns its ad breaks in
// stream time. A break opens on a cue-out and closes on the next cue-in, after
// its declared duration, or at the end of the playlist.
func ParseManifest(r io.Reader) (Manifest, error) {
	normalized, err := normalizeCueTags(r)
	if err != nil {
		return Manifest{}, fmt.Errorf("read playlist: %w", err)
	}

	playlist, listType, err := m3u8.DecodeFrom(normalized, true)
	if err != nil {
		return Manifest{}, fmt.Errorf("decode playlist: %w", err)
	}
	if listType != m3u8.MEDIA {
		return Manifest{}, ErrNotMediaPlaylist
	}
	media := playlist.(*m3u8.MediaPlaylist)

	var (
		points  []cuepoint.CuePoint
		markers []Marker
		pos     float64
		current = mo.None[openBreak]()
	)

	closeAt := func(end float64) {
		if b, ok := current.Get(); ok {
			if end > b.start {
				points = append(points, cuepoint.New(b.start, end, false))
			}
			current = mo.None[openBreak]()
		}
	}

	for _, segment := range media.Segments {
		if segment == nil { // No more segments
			break
		}

		if scte := segment.SCTE; scte != nil {
			switch scte.CueType {
			case m3u8.SCTE35Cue_Start:
				closeAt(pos)
				current = mo.Some(openBreak{start: pos, declared: scte.Time})
				markers = append(markers, Marker{Start: pos, ID: scte.ID, Cue: scte.Cue})
			case m3u8.SCTE35Cue_Mid:
				if current.IsAbsent() {
					start := pos - scte.Elapsed
					if start < 0 {
						start = 0
					}
					current = mo.Some(openBreak{start: start, declared: scte.Time})
					markers = append(markers, Marker{Start: start, ID: scte.ID, Cue: scte.Cue})
				}
			case m3u8.SCTE35Cue_End:
				closeAt(pos)
			}
		}

		pos += segment.Duration

		if b, ok := current.Get(); ok && b.declared > 0 && pos >= b.start+b.declared-durationEpsilon {
			closeAt(pos)
		}
	}
	closeAt(pos)

	return Manifest{
		CuePoints: cuepoint.NewSet(points...),
		Markers:   markers,
		Duration:  pos,
	}, nil
}

// normalizeCueTags rewrites cue-out and cue-in tags into the OATCLS form the
// decoder reads. A cue-out without a preceding EXT-OATCLS-SCTE35 gets an empty
// one, its duration is reduced to a number and cue-in attributes are dropped.
func normalizeCueTags(r io.Reader) (io.Reader, error) {
	var (
		out    bytes.Buffer
		paired bool
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, tagOATCLS):
			paired = true
		case strings.HasPrefix(line, tagCueOutCont):
		case strings.HasPrefix(line, tagCueOut):
			if !paired {
				out.WriteString(tagOATCLS + "\n")
			}
			line = tagCueOut + ":" + strconv.FormatFloat(cueOutDuration(line), 'f', -1, 64)
			paired = false
		case strings.HasPrefix(line, tagCueIn):
			line = tagCueIn
		case line != "" && !strings.HasPrefix(line, "#"):
			paired = false
		}

		out.WriteString(line)
		out.WriteByte('\n')
	}

	return &out, scanner.Err()
}

// cueOutDuration reads "#EXT-X-CUE-OUT:10" and "#EXT-X-CUE-OUT:DURATION=10".
// Zero means the break lasts until the next cue-in.
func cueOutDuration(line string) float64 {
	value := strings.TrimPrefix(strings.TrimPrefix(line, tagCueOut), ":")

	for _, attr := range strings.Split(value, ",") {
		name, v, found := strings.Cut(attr, "=")
		if !found {
			v = name
		} else if !strings.EqualFold(strings.TrimSpace(name), "DURATION") {
			continue
		}
		if d, err := strconv.ParseFloat(strings.Trim(strings.TrimSpace(v), `"`), 64); err == nil && d > 0 {
			return d
		}
	}

	return 0
}
