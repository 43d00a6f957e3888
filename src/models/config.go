package models

// MConfig Structure
type MConfig struct {
	Name       string            `yaml:"name"`
	Host       string            `yaml:"host"`
	Port       int               `yaml:"port"`
	LogLevel   string            `yaml:"log_level"`
	GrpcHost   string            `yaml:"grpc_host"`
	GrpcPort   int               `yaml:"grpc_port"`
	StaticDir  string            `yaml:"static_dir"`
	Admin      MAdminConfig      `yaml:"admin"`
	Storage    MStorageConfig    `yaml:"storage"`
	Network    MNetworkConfig    `yaml:"network"`
	DataSource MDataSourceConfig `yaml:"data_source"`
	Dashboard  MDashboardConfig  `yaml:"dashboard"`
}

type MAdminConfig struct {
	Password          string `yaml:"password"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	Sources        []MSourceConfig `yaml:"sources"`
	NewsSymbolsMax int             `yaml:"news_symbols_max"`
	NewsItemsMax   int             `yaml:"news_items_max"`
	RefreshMinutes int             `yaml:"refresh_minutes"`
	CacheKeepDays  int             `yaml:"cache_keep_days"`
}

type MSourceConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`    // "yahoo"
	APIKey string `yaml:"api_key"` // Optional
}

// MDashboardConfig tunes race playback and GIF export.
type MDashboardConfig struct {
	ChartWidth      int     `yaml:"chart_width"`
	ChartHeight     int     `yaml:"chart_height"`
	GifWidth        int     `yaml:"gif_width"`
	GifHeight       int     `yaml:"gif_height"`
	GifMaxFrames    int     `yaml:"gif_max_frames"`
	GifFrameSeconds float64 `yaml:"gif_frame_seconds"`
	GifWorkers      int     `yaml:"gif_workers"`
	GifTimeoutSec   int     `yaml:"gif_timeout_seconds"`
	DefaultSpeed    int     `yaml:"default_speed"`
	ExportRetention int     `yaml:"export_retention"`
}
