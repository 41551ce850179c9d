package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Get initializes the process logger once. Later calls return the same
// logger regardless of their arguments.
func Get(filepath string, env string) zerolog.Logger {
	once.Do(func() {
		zerolog.DurationFieldUnit = time.Microsecond
		zerolog.ErrorFieldName = "error"
		zerolog.ErrorStackFieldName = "stack-trace"
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.LevelFieldName = "level"
		zerolog.MessageFieldName = "message"
		zerolog.TimestampFieldName = "timestamp"

		logLevel := zerolog.InfoLevel
		switch env {
		case "development":
			logLevel = zerolog.TraceLevel
		case "test":
			logLevel = zerolog.WarnLevel
		}

		var output io.Writer = os.Stderr
		if filepath != "" {
			fileWriter := &lumberjack.Logger{
				Filename:   filepath,
				MaxSize:    50,
				MaxBackups: 3,
				Compress:   true,
			}
			output = zerolog.MultiLevelWriter(os.Stderr, fileWriter)
		}

		logger = zerolog.New(output).
			Level(logLevel).
			Hook(AttachTraceIdFromContext()).
			With().
			Timestamp().
			Caller().
			Stack().
			Int("pid", os.Getpid()).
			Int("gid", os.Getgid()).
			Int("uid", os.Getuid()).
			Logger()

		logger.Info().
			Str(KeyTag, "log Get").
			Str(KeyProcess, "initializing logger").
			Msg("finish initiating logging")
	})
	return logger
}
