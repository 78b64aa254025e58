package client

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/pion/webrtc/v4"
	"gopkg.in/yaml.v2"
)

func ReadConfigFile(filename string, c *Config) (err error) {
	f, err := os.Open(filename)
	if err != nil {
		return errors.Annotatef(err, "read config file: %s", filename)
	}

	defer f.Close()

	err = ReadConfigYAML(f, c)

	return errors.Annotatef(err, "read yaml config: %s", filename)
}

func ReadConfigFiles(filenames []string, c *Config) (err error) {
	for _, filename := range filenames {
		err = ReadConfigFile(filename, c)
		if err != nil {
			return errors.Trace(err)
		}
	}

	return nil
}

func InitConfig(c *Config) {
	c.Signaling.BaseURL = "https://rtc.live.cloudflare.com/v1/apps"
	c.ICEServers = []ICEServer{{
		URLs: []string{"stun:stun.l.google.com:19302"},
	}}
	c.Media.Video = true
	c.Media.Audio = true
}

func ReadConfig(filenames []string) (c Config, err error) {
	InitConfig(&c)
	err = ReadConfigFiles(filenames, &c)
	ReadConfigFromEnv("MEET_", &c)

	return c, errors.Trace(err)
}

func ReadConfigYAML(reader io.Reader, c *Config) error {
	decoder := yaml.NewDecoder(reader)
	if err := decoder.Decode(c); err != nil {
		return errors.Annotatef(err, "decode yaml")
	}

	return nil
}

func ReadConfigFromEnv(prefix string, c *Config) {
	setEnvString(&c.Signaling.BaseURL, prefix+"SIGNALING_BASE_URL")
	setEnvString(&c.Signaling.AppID, prefix+"SIGNALING_APP_ID")
	setEnvString(&c.Signaling.Token, prefix+"SIGNALING_TOKEN")

	setEnvString(&c.Realtime.URL, prefix+"REALTIME_URL")
	setEnvString(&c.Realtime.Token, prefix+"REALTIME_TOKEN")

	if value, ok := os.LookupEnv(prefix + "ICE_SERVER_URLS"); ok {
		// Do not use the default servers, even if value is empty.
		c.ICEServers = make([]ICEServer, 0, 1)

		var ice ICEServer

		setSlice(&ice.URLs, value)

		if len(ice.URLs) > 0 {
			setEnvString(&ice.Username, prefix+"ICE_SERVER_USERNAME")
			setEnvString(&ice.Credential, prefix+"ICE_SERVER_CREDENTIAL")
			c.ICEServers = append(c.ICEServers, ice)
		}
	}

	setEnvBool(&c.Media.Video, prefix+"MEDIA_VIDEO")
	setEnvBool(&c.Media.Audio, prefix+"MEDIA_AUDIO")
	setEnvInt(&c.Media.MaxWidth, prefix+"MEDIA_MAX_WIDTH")
	setEnvInt(&c.Media.MaxHeight, prefix+"MEDIA_MAX_HEIGHT")
	setEnvInt(&c.Media.VideoBitRate, prefix+"MEDIA_VIDEO_BIT_RATE")
}

// Validate checks the credentials without which no session can be
// established.
func (c Config) Validate() error {
	if c.Signaling.AppID == "" {
		return errors.New("signaling app_id is required")
	}

	if c.Signaling.Token == "" {
		return errors.New("signaling token is required")
	}

	if c.Realtime.URL == "" {
		return errors.New("realtime url is required")
	}

	return nil
}

// WebRTCICEServers converts the configured servers into pion's type.
func (c Config) WebRTCICEServers() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, len(c.ICEServers))

	for i, server := range c.ICEServers {
		servers[i] = webrtc.ICEServer{
			URLs:     server.URLs,
			Username: server.Username,
		}

		if server.Credential != "" {
			servers[i].Credential = server.Credential
		}
	}

	return servers
}

func setSlice(dest *[]string, value string) {
	for _, v := range strings.Split(value, ",") {
		if v != "" {
			*dest = append(*dest, v)
		}
	}
}

func setEnvString(dest *string, name string) {
	value := os.Getenv(name)
	if value != "" {
		*dest = value
	}
}

func setEnvInt(dest *int, name string) {
	value, err := strconv.Atoi(os.Getenv(name))
	if err == nil {
		*dest = value
	}
}

func setEnvBool(dest *bool, name string) {
	val := os.Getenv(name)

	// Only set the boolean value when the environment variable is
	// explicitly set to either 'true' or 'false', to prevent resetting the
	// pointer value to false when there is no environment variable defined.
	switch val {
	case "true":
		*dest = true
	case "false":
		*dest = false
	}
}
