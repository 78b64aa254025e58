package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/hijra-meet/hijra-meet/client"
	"github.com/hijra-meet/hijra-meet/client/identifiers"
	"github.com/hijra-meet/hijra-meet/client/logger"
	"github.com/hijra-meet/hijra-meet/client/media"
	"github.com/hijra-meet/hijra-meet/client/multierr"
	"github.com/hijra-meet/hijra-meet/client/peer"
	"github.com/hijra-meet/hijra-meet/client/realtime"
	"github.com/hijra-meet/hijra-meet/client/sfu"
	"github.com/hijra-meet/hijra-meet/client/subscriber"
)

type joinFlags struct {
	configFiles []string
	meetingID   string
	name        string
	host        bool
	noVideo     bool
	noAudio     bool
}

func newJoinCmd(props Props) *cobra.Command {
	flags := joinFlags{}

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a meeting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.Trace(runJoin(cmd.Context(), props, flags))
		},
	}

	cmd.Flags().StringSliceVarP(&flags.configFiles, "config", "c", nil, "YAML config files to read")
	cmd.Flags().StringVarP(&flags.meetingID, "meeting", "m", "", "meeting ID to join")
	cmd.Flags().StringVarP(&flags.name, "name", "n", "", "display name")
	cmd.Flags().BoolVar(&flags.host, "host", false, "join as meeting host")
	cmd.Flags().BoolVar(&flags.noVideo, "no-video", false, "do not capture video")
	cmd.Flags().BoolVar(&flags.noAudio, "no-audio", false, "do not capture audio")

	_ = cmd.MarkFlagRequired("meeting")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runJoin(ctx context.Context, props Props, flags joinFlags) error {
	log := props.Log

	config, err := client.ReadConfig(flags.configFiles)
	if err != nil {
		return errors.Trace(err)
	}

	if err := config.Validate(); err != nil {
		return errors.Trace(err)
	}

	if flags.noVideo {
		config.Media.Video = false
	}

	if flags.noAudio {
		config.Media.Audio = false
	}

	meetingID := identifiers.MeetingID(flags.meetingID)
	participantID := identifiers.ParticipantID(uuid.NewString())

	role := client.RoleParticipant
	if flags.host {
		role = client.RoleHost
	}

	log.Info("Joining meeting", logger.Ctx{
		"meeting_id":     meetingID,
		"participant_id": participantID,
		"role":           role,
	})

	sfuClient := sfu.NewClient(sfu.Params{
		Log:     log,
		BaseURL: config.Signaling.BaseURL,
		AppID:   config.Signaling.AppID,
		Token:   config.Signaling.Token,
	})

	errs := multierr.New()

	var (
		capturer *media.Capturer
		stream   *media.Stream
	)

	if config.Media.Video || config.Media.Audio {
		capturer, err = media.NewCapturer(media.CapturerParams{
			Log:          log,
			VideoBitRate: config.Media.VideoBitRate,
		})
		if err != nil {
			return errors.Trace(err)
		}

		stream, err = capturer.Open(media.Constraints{
			Video:     config.Media.Video,
			Audio:     config.Media.Audio,
			MaxWidth:  config.Media.MaxWidth,
			MaxHeight: config.Media.MaxHeight,
		})
		if err != nil {
			return errors.Annotate(err, "open local media")
		}

		defer func() {
			errs.Add(stream.Close())
		}()
	}

	peerManager := peer.NewManager(peer.Params{
		Log:        log,
		SFU:        sfuClient,
		ICEServers: config.WebRTCICEServers(),
		Capturer:   capturer,
	})

	defer func() {
		errs.Add(peerManager.Close(context.Background()))
	}()

	engine := subscriber.NewEngine(subscriber.Params{
		Log:        log,
		Negotiator: peerManager,
	})

	defer engine.Close()

	if _, err := peerManager.Initialize(ctx); err != nil {
		return errors.Trace(err)
	}

	coordinatorParams := client.CoordinatorParams{
		Log:             log,
		MeetingID:       meetingID,
		ParticipantID:   participantID,
		ParticipantName: flags.name,
		Role:            role,
		NewChannel: func() realtime.Channel {
			return realtime.NewGatewayChannel(realtime.GatewayParams{
				Log:       log,
				URL:       config.Realtime.URL,
				Token:     config.Realtime.Token,
				MeetingID: meetingID,
			})
		},
		Peer:       peerManager,
		Subscriber: engine,
	}

	if stream != nil {
		coordinatorParams.Media = stream
	}

	coordinator := client.NewCoordinator(coordinatorParams)

	if stream != nil {
		infos, err := peerManager.Publish(ctx, stream)
		if err != nil {
			return errors.Annotate(err, "publish local tracks")
		}

		// The channel is not connected yet, so this only stores the
		// descriptor: the coordinator announces it once subscribed.
		if err := coordinator.AnnounceTracks(ctx, infos); err != nil &&
			errors.Cause(err) != client.ErrNotConnected {
			return errors.Trace(err)
		}
	}

	errs.Add(errors.Trace(coordinator.Run(ctx)))

	return errs.Err()
}
