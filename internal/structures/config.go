package structures

type Storage struct {
	DataFile     string `mapstructure:"dataFile" validate:"required"`
	SettingsFile string `mapstructure:"settingsFile" validate:"required"`
}

type Server struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `mapstructure:"mode" validate:"required|uint"`
	Dir   string `mapstructure:"dir" validate:"required"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Size    int  `mapstructure:"size"`
	TTL     int  `mapstructure:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ViewConfig struct {
	RecentCount int `mapstructure:"recentCount" validate:"min:0"`
}

type UploadConfig struct {
	MaxFileSize int64 `mapstructure:"maxFileSize" validate:"min:1"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	Storage   Storage       `mapstructure:"storage"`
	WebServer Server        `mapstructure:"webServer"`
	Logger    LoggerConfig  `mapstructure:"logger"`
	Cache     CacheConfig   `mapstructure:"cache"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
	View      ViewConfig    `mapstructure:"view"`
	Upload    UploadConfig  `mapstructure:"upload"`
}
