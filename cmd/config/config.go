package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mattsolo1/grove-convo/pkg/recorder"
	"github.com/mattsolo1/grove-convo/pkg/service"
	"github.com/mattsolo1/grove-convo/pkg/transcribe"
)

var (
	cfgFile string
	Verbose bool
)

func InitConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".config", "convo")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("CONVO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

	// A missing config file is fine; everything has a default.
	_ = viper.ReadInConfig()

	// .env files never override variables already set in the environment.
	_ = godotenv.Load(envFiles(dataDir(viper.GetViper()))...)
}

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	home, _ := homedir.Dir()
	tc := transcribe.DefaultConfig()
	rc := recorder.DefaultConfig()

	v.SetDefault("data_dir", filepath.Join(home, ".local", "share", "convo"))
	v.SetDefault("editor", os.Getenv("EDITOR"))
	v.SetDefault("log_level", "warn")
	v.SetDefault("notify", true)

	v.SetDefault("transcription.endpoint", tc.Endpoint)
	v.SetDefault("transcription.api_key", "")
	v.SetDefault("transcription.model", tc.Model)
	v.SetDefault("transcription.language", tc.Language)
	v.SetDefault("transcription.response_format", tc.ResponseFormat)
	v.SetDefault("transcription.text_path", tc.TextPath)
	v.SetDefault("transcription.prompt", "")
	v.SetDefault("transcription.timeout", tc.Timeout)
	v.SetDefault("transcription.max_upload_bytes", tc.MaxUploadBytes)

	v.SetDefault("recording.sample_rate", rc.SampleRate)
	v.SetDefault("recording.channels", rc.Channels)
	v.SetDefault("recording.frames_per_buffer", rc.FramesPerBuffer)
	v.SetDefault("recording.chunk_duration", rc.ChunkDuration)
}

// dataDir is the configured data_dir with a leading "~" expanded.
func dataDir(v *viper.Viper) string {
	dir := v.GetString("data_dir")
	if expanded, err := homedir.Expand(dir); err == nil {
		return expanded
	}
	return dir
}

// envFiles lists the .env files that exist in the data dir and the working directory.
func envFiles(dataDir string) []string {
	var files []string
	candidates := []string{filepath.Join(dataDir, ".env")}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, ".env"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			files = append(files, c)
		}
	}
	return files
}

// ServiceConfig builds the service configuration from v.
func ServiceConfig(v *viper.Viper) *service.Config {
	apiKey := v.GetString("transcription.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	editor := v.GetString("editor")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}

	return &service.Config{
		DataDir: dataDir(v),
		Editor:  editor,
		Notify:  v.GetBool("notify"),
		Transcription: transcribe.Config{
			Endpoint:       v.GetString("transcription.endpoint"),
			APIKey:         apiKey,
			Model:          v.GetString("transcription.model"),
			Language:       v.GetString("transcription.language"),
			ResponseFormat: v.GetString("transcription.response_format"),
			Prompt:         v.GetString("transcription.prompt"),
			TextPath:       v.GetString("transcription.text_path"),
			Timeout:        v.GetDuration("transcription.timeout"),
			MaxUploadBytes: v.GetInt64("transcription.max_upload_bytes"),
		},
		Recording: recorder.Config{
			SampleRate:      v.GetInt("recording.sample_rate"),
			Channels:        v.GetInt("recording.channels"),
			FramesPerBuffer: v.GetInt("recording.frames_per_buffer"),
			ChunkDuration:   v.GetDuration("recording.chunk_duration"),
		},
	}
}

// NewLogger builds the stderr logger. --verbose wins over log_level.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if level, err := logrus.ParseLevel(viper.GetString("log_level")); err == nil {
		logger.SetLevel(level)
	}
	if Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func InitService(logger logrus.FieldLogger, opts ...service.Option) (*service.Service, error) {
	opts = append([]service.Option{service.WithLogger(logger)}, opts...)
	return service.New(ServiceConfig(viper.GetViper()), opts...)
}

func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/convo/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "Enable debug logging")
}
