package config

// Config holds examkit configuration.
// Loaded from config.yaml in the working directory or ~/.examkit.
type Config struct {
	Server ServerCfg `mapstructure:"server" yaml:"server"`
	Parser ParserCfg `mapstructure:"parser" yaml:"parser"`
	Output OutputCfg `mapstructure:"output" yaml:"output"`
}

// ServerCfg configures the HTTP API server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// ParserCfg holds the block-normalizer knobs.
type ParserCfg struct {
	// MinImageSize is the minimum pixel dimension below which an image
	// is treated as decorative noise.
	MinImageSize int `mapstructure:"min_image_size" yaml:"min_image_size"`
	// LogoRepeatThreshold is how many times an identical image may
	// repeat before small occurrences are treated as logos.
	LogoRepeatThreshold int `mapstructure:"logo_repeat_threshold" yaml:"logo_repeat_threshold"`
	// LogoAreaThreshold is the rendered area in square points under
	// which a repeated image counts as small.
	LogoAreaThreshold float64 `mapstructure:"logo_area_threshold" yaml:"logo_area_threshold"`
	// MaxImagesPerPage caps image extraction per page.
	MaxImagesPerPage int `mapstructure:"max_images_per_page" yaml:"max_images_per_page"`
}

// OutputCfg configures one-shot parse exports.
type OutputCfg struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	RawBlocks bool   `mapstructure:"raw_blocks" yaml:"raw_blocks"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8930,
		},
		Parser: ParserCfg{
			MinImageSize:        50,
			LogoRepeatThreshold: 5,
			LogoAreaThreshold:   10000,
			MaxImagesPerPage:    2000,
		},
		Output: OutputCfg{
			Dir:       "output",
			RawBlocks: true,
		},
	}
}
