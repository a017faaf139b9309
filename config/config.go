package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	DefaultPrefix       = "v!"
	DefaultTimezone     = "Europe/Berlin"
	DefaultDatabasePath = "./data/leaderboard.json"
	DefaultVoteEmoji    = "🔥"
)

type Config struct {
	Token string

	ClipChannelID   string
	VotingChannelID string
	ResultChannelID string
	AdminRoleID     string

	Prefix          string
	MinClips        int
	VotingDay       time.Weekday
	VotingStartHour int
	VotingEndHour   int
	Location        *time.Location

	DatabasePath    string
	ClipDomains     []string
	VideoExtensions []string
	VoteEmoji       string
	HistoryPageSize int
	PostDelay       time.Duration

	Port     string
	LogLevel slog.Level

	// Google Cloud deployments read the bot token from Secret Manager.
	GCPProject      string
	TokenSecretName string
}

// ResultChannel returns the channel where results and notices go.
func (c Config) ResultChannel() string {
	if c.ResultChannelID != "" {
		return c.ResultChannelID
	}
	return c.VotingChannelID
}

// Load reads a .env file when present, then the environment; flags in args
// override both.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return parse(args, os.Getenv)
}

func parse(args []string, getenv func(string) string) (Config, error) {
	var (
		cfg      Config
		timezone string
		logLevel string
	)

	fs := flag.NewFlagSet("clipoftheweek", flag.ContinueOnError)
	fs.StringVar(&cfg.Prefix, "prefix", "", "Command prefix")
	fs.StringVar(&cfg.DatabasePath, "db", "", "Leaderboard file path")
	fs.StringVar(&timezone, "tz", "", "Timezone for the weekly schedule")
	fs.StringVar(&cfg.Port, "port", "", "Status server port, empty disables it")
	fs.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.IntVar(&cfg.MinClips, "min-clips", 0, "Minimum clips needed for a vote")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Token = getenv("DISCORD_TOKEN")
	cfg.ClipChannelID = getenv("CLIP_CHANNEL_ID")
	cfg.VotingChannelID = getenv("VOTING_CHANNEL_ID")
	cfg.ResultChannelID = getenv("RESULT_CHANNEL_ID")
	cfg.AdminRoleID = getenv("ADMIN_ROLE_ID")
	cfg.GCPProject = getenv("GOOGLE_CLOUD_PROJECT")
	cfg.TokenSecretName = getenv("TOKEN_SECRET_NAME")

	if cfg.Prefix == "" {
		cfg.Prefix = stringOr(getenv("BOT_PREFIX"), DefaultPrefix)
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = stringOr(getenv("DATABASE_PATH"), DefaultDatabasePath)
	}
	if cfg.Port == "" {
		cfg.Port = getenv("PORT")
	}
	cfg.VoteEmoji = stringOr(getenv("VOTE_EMOJI"), DefaultVoteEmoji)

	var err error
	if cfg.MinClips == 0 {
		if cfg.MinClips, err = intEnv(getenv, "MIN_CLIPS_FOR_VOTING", 2); err != nil {
			return Config{}, err
		}
	}
	if cfg.MinClips < 1 {
		return Config{}, errors.New("minimum clips must be at least 1")
	}
	if cfg.VotingEndHour, err = intEnv(getenv, "VOTING_END_HOUR", 20); err != nil {
		return Config{}, err
	}
	if cfg.VotingStartHour, err = intEnv(getenv, "VOTING_START_HOUR", 0); err != nil {
		return Config{}, err
	}
	for _, h := range []int{cfg.VotingStartHour, cfg.VotingEndHour} {
		if h < 0 || h > 23 {
			return Config{}, fmt.Errorf("invalid hour %d", h)
		}
	}
	day, err := intEnv(getenv, "VOTING_DAY", int(time.Sunday))
	if err != nil {
		return Config{}, err
	}
	if day < 0 || day > 6 {
		return Config{}, fmt.Errorf("invalid VOTING_DAY %d", day)
	}
	cfg.VotingDay = time.Weekday(day)

	if cfg.HistoryPageSize, err = intEnv(getenv, "HISTORY_PAGE_SIZE", 100); err != nil {
		return Config{}, err
	}
	if cfg.HistoryPageSize < 1 || cfg.HistoryPageSize > 100 {
		return Config{}, fmt.Errorf("HISTORY_PAGE_SIZE must be within 1..100, got %d", cfg.HistoryPageSize)
	}

	cfg.PostDelay = time.Second
	if v := getenv("POST_DELAY"); v != "" {
		if cfg.PostDelay, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("invalid POST_DELAY: %w", err)
		}
	}

	if timezone == "" {
		timezone = stringOr(getenv("TIMEZONE"), DefaultTimezone)
	}
	if cfg.Location, err = time.LoadLocation(timezone); err != nil {
		return Config{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	if logLevel == "" {
		logLevel = getenv("LOG_LEVEL")
	}
	if logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
			return Config{}, fmt.Errorf("invalid log level: %w", err)
		}
	}

	cfg.ClipDomains = listOr(getenv("CLIP_DOMAINS"), []string{"medal.tv"})
	cfg.VideoExtensions = listOr(getenv("VIDEO_EXTENSIONS"), []string{".mp4"})

	return cfg, nil
}

// Validate checks the settings the bot cannot run without.
func (c Config) Validate() error {
	var missing []string
	if c.Token == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if c.ClipChannelID == "" {
		missing = append(missing, "CLIP_CHANNEL_ID")
	}
	if c.VotingChannelID == "" {
		missing = append(missing, "VOTING_CHANNEL_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s env variable: %w", key, err)
	}
	return i, nil
}

func listOr(v string, def []string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
