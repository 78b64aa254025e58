package client

// SignalingConfig points at the hosted SFU application.
type SignalingConfig struct {
	BaseURL string `yaml:"base_url"`
	AppID   string `yaml:"app_id"`
	Token   string `yaml:"token"`
}

// RealtimeConfig points at the presence and broadcast gateway.
type RealtimeConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username"`
	Credential string   `yaml:"credential"`
}

type MediaConfig struct {
	Video        bool `yaml:"video"`
	Audio        bool `yaml:"audio"`
	MaxWidth     int  `yaml:"max_width"`
	MaxHeight    int  `yaml:"max_height"`
	VideoBitRate int  `yaml:"video_bit_rate"`
}

type Config struct {
	Signaling  SignalingConfig `yaml:"signaling"`
	Realtime   RealtimeConfig  `yaml:"realtime"`
	ICEServers []ICEServer     `yaml:"ice_servers"`
	Media      MediaConfig     `yaml:"media"`
}
