package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// Logger — обертка над zap.SugaredLogger с key/value методами (Infow, Errorw, ...).
type Logger struct {
	*zap.SugaredLogger
}

// New создает логгер с указанным уровнем. В production пишет JSON, иначе консольный формат.
func New(level LogLevel) *Logger {
	var cfg zap.Config
	if os.Getenv("APP_ENV") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.DisableStacktrace = level > DEBUG

	base, err := cfg.Build(zap.AddCaller())
	if err != nil {
		// Конфигурация статическая, ошибка здесь означает битый stdout
		base = zap.NewExample()
	}
	return &Logger{SugaredLogger: base.Sugar()}
}

// NewNop возвращает логгер, который ничего не пишет (для тестов).
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// ParseLevel переводит строку из конфигурации в LogLevel. Неизвестные значения дают INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Named возвращает дочерний логгер с именем компонента.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

// Sync сбрасывает буферы. Ошибку для stdout/stderr игнорируем.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (lvl LogLevel) zapLevel() zapcore.Level {
	switch lvl {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
