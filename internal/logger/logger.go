// Package logger is the planner's structured logging sink: a zap logger
// tee'd between the console and a rotating file, in the shape the rest of
// this module expects (package-level Init + sugared level helpers).
package logger

import (
	"fmt"
	"log"
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.Logger

type Level int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

func newEncoder(color bool) zapcore.Encoder {
	levelEncoder := zapcore.CapitalLevelEncoder
	if color {
		levelEncoder = zapcore.CapitalColorLevelEncoder
	}
	cfg := zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		TimeKey:          "time",
		CallerKey:        "caller",
		EncodeLevel:      levelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func newFileCore(encoder zapcore.Encoder, level zapcore.Level, logfile string, maxSize, maxBackups, maxAge int) zapcore.Core {
	w := &lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   false,
		LocalTime:  true,
	}
	return zapcore.NewCore(encoder, zapcore.AddSync(w), level)
}

// Init wires a console+file tee logger. logfile may be empty, in which case
// only the console core is installed (used by tests and by cmd/plannerd
// when its -logfile flag is empty).
func Init(level Level, logfile string, color bool, maxSize, maxBackups, maxAge int) {
	encoder := newEncoder(color)
	consoleCore := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.Level(level))
	core := zapcore.Core(consoleCore)
	if logfile != "" {
		fileCore := newFileCore(encoder, zapcore.Level(level), logfile, maxSize, maxBackups, maxAge)
		core = zapcore.NewTee(consoleCore, fileCore)
	}
	Logger = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func Sync() {
	if Logger != nil {
		if err := Logger.Sync(); err != nil {
			log.Fatalf("failed to sync logger: %v", err)
		}
	}
}

// WithGID tags a sugared call chain with the calling goroutine's id so a
// critical-section log line can show whether the producer or the
// stepper-link consumer touched a block.
func WithGID(gid uint64) *zap.SugaredLogger {
	if Logger == nil {
		return zap.NewNop().Sugar()
	}
	return Logger.Sugar().With("gid", gid)
}

func Infof(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Infof(format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Debugf(format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Warnf(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Sugar().Errorf(format, args...)
	}
}

func Panicf(format string, args ...interface{}) {
	if Logger != nil {
		msg := fmt.Sprintf(format, args...)
		Logger.Sync()
		panic(msg)
	}
}

func Fatalf(format string, args ...interface{}) {
	if Logger != nil {
		msg := fmt.Sprintf(format, args...)
		Logger.Error(msg)
		Logger.Sync()
		os.Exit(1)
	}
}
