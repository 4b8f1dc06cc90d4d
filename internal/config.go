package internal

import (
	"fmt"
	"time"
)

// Config is the websocket gateway configuration, read from the environment.
type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8000"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=168h"`

	SendTimeout  time.Duration `env:"SEND_TIMEOUT,default=5s"`
	PingInterval time.Duration `env:"PING_INTERVAL,default=30s"`
	PongWait     time.Duration `env:"PONG_WAIT,default=60s"`
	MaxFrameSize int64         `env:"MAX_FRAME_SIZE,default=65536"`
	InboundRate  float64       `env:"INBOUND_RATE,default=0"`
	InboundBurst int           `env:"INBOUND_BURST,default=20"`

	CensoredWordsFile string `env:"CENSORED_WORDS_FILE"`
	CharReplacement   string `env:"CHARACTER_REPLACEMENT,default=*"`
	HistoryLimit      int    `env:"HISTORY_LIMIT,default=50"`

	ReportInterval  time.Duration `env:"REPORT_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	StaticDir       string        `env:"STATIC_DIR"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the relations between values that tags cannot express.
func (c Config) Validate() error {
	if c.PingInterval >= c.PongWait {
		return fmt.Errorf("PING_INTERVAL (%s) must be shorter than PONG_WAIT (%s)", c.PingInterval, c.PongWait)
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("MAX_FRAME_SIZE must be positive, got %d", c.MaxFrameSize)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
