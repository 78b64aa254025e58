package media

import (
	"github.com/juju/errors"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"

	"github.com/hijra-meet/hijra-meet/client/logger"
)

// Constraints describe the media a participant wants to capture.
type Constraints struct {
	Video bool
	Audio bool

	// MaxWidth and MaxHeight cap the video resolution. Zero means the
	// default of 640x480.
	MaxWidth  int
	MaxHeight int
}

const (
	defaultMaxWidth     = 640
	defaultMaxHeight    = 480
	defaultVideoBitRate = 1_500_000
)

type CapturerParams struct {
	Log logger.Logger

	// VideoBitRate is the VP8 target bit rate in bits per second. Zero
	// means 1.5 Mbps.
	VideoBitRate int
}

// Capturer opens local camera and microphone tracks encoded as VP8 and
// Opus. The codec selector it builds must also be registered on the
// media engine of the peer connection that will send the tracks, see
// RegisterCodecs.
type Capturer struct {
	params   *CapturerParams
	selector *mediadevices.CodecSelector
}

func NewCapturer(params CapturerParams) (*Capturer, error) {
	params.Log = params.Log.WithNamespaceAppended("media")

	if params.VideoBitRate == 0 {
		params.VideoBitRate = defaultVideoBitRate
	}

	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, errors.Annotate(err, "new vp8 params")
	}

	vpxParams.BitRate = params.VideoBitRate

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, errors.Annotate(err, "new opus params")
	}

	selector := mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)

	return &Capturer{
		params:   &params,
		selector: selector,
	}, nil
}

// RegisterCodecs populates the media engine with the codec parameters
// the capturer encodes with.
func (c *Capturer) RegisterCodecs(m *webrtc.MediaEngine) {
	c.selector.Populate(m)
}

// Open captures local media. GetUserMedia fails as a unit when either
// track cannot be opened, so when both kinds are requested it retries
// with video only and then audio only before giving up. The returned
// error of a full failure is the classified error of the last attempt.
//
// An empty Constraints (no video, no audio) returns a stream with no
// tracks so a participant can join receive-only.
func (c *Capturer) Open(constraints Constraints) (*Stream, error) {
	log := c.params.Log

	if !constraints.Video && !constraints.Audio {
		log.Info("Open: no capture requested", nil)

		return NewStream(nil), nil
	}

	devices := mediadevices.EnumerateDevices()
	if len(devices) == 0 {
		log.Warn("Open: no media devices found", nil)
	}

	for _, device := range devices {
		log.Debug("Open: device found", logger.Ctx{
			"device_kind":  device.Kind,
			"device_label": device.Label,
		})
	}

	type attempt struct {
		video bool
		audio bool
	}

	attempts := []attempt{}

	if constraints.Video && constraints.Audio {
		attempts = append(attempts, attempt{true, true})
	}

	if constraints.Video {
		attempts = append(attempts, attempt{true, false})
	}

	if constraints.Audio {
		attempts = append(attempts, attempt{false, true})
	}

	var lastErr error

	for _, a := range attempts {
		a := a

		msc := mediadevices.MediaStreamConstraints{
			Codec: c.selector,
		}

		if a.video {
			msc.Video = func(mtc *mediadevices.MediaTrackConstraints) {
				c.videoConstraints(&constraints, mtc)
			}
		}

		if a.audio {
			msc.Audio = func(*mediadevices.MediaTrackConstraints) {}
		}

		stream, err := mediadevices.GetUserMedia(msc)
		if err != nil {
			lastErr = classifyCaptureError(err)

			log.Warn("Open: capture attempt failed", logger.Ctx{
				"video": a.video,
				"audio": a.audio,
				"error": err,
			})

			continue
		}

		tracks := stream.GetTracks()

		locals := make([]webrtc.TrackLocal, 0, len(tracks))

		for _, t := range tracks {
			t := t

			t.OnEnded(func(err error) {
				if err != nil {
					log.Warn("Local track ended", logger.Ctx{
						"track_id": t.ID(),
						"error":    err,
					})
				}
			})

			locals = append(locals, t)
		}

		log.Info("Open: media captured", logger.Ctx{
			"video":  a.video,
			"audio":  a.audio,
			"tracks": len(locals),
		})

		return NewStream(locals), nil
	}

	return nil, errors.Trace(lastErr)
}

// videoConstraints excludes compressed frame formats. Some cameras
// expose an MJPEG node producing malformed frames that poison the VP8
// encoder, so raw formats only.
func (c *Capturer) videoConstraints(constraints *Constraints, mtc *mediadevices.MediaTrackConstraints) {
	maxWidth := constraints.MaxWidth
	if maxWidth == 0 {
		maxWidth = defaultMaxWidth
	}

	maxHeight := constraints.MaxHeight
	if maxHeight == 0 {
		maxHeight = defaultMaxHeight
	}

	mtc.FrameFormat = prop.FrameFormatOneOf{
		frame.FormatYUYV,
		frame.FormatI420,
		frame.FormatI444,
		frame.FormatRGBA,
	}
	mtc.Width = prop.IntRanged{Max: maxWidth}
	mtc.Height = prop.IntRanged{Max: maxHeight}
}
