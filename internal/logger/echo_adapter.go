package logger

import (
	"fmt"
	"io"
	"sync/atomic"

	echolog "github.com/labstack/gommon/log"
)

// EchoAdapter routes Echo's internal logging (startup errors, binder
// warnings) through a Logger so it shares format and outputs with the rest
// of the application.
type EchoAdapter struct {
	logger Logger
	level  atomic.Uint32
}

// NewEchoAdapter wraps log. Messages below INFO are dropped until SetLevel
// lowers the threshold.
func NewEchoAdapter(log Logger) *EchoAdapter {
	if log == nil {
		log = NewSlogLogger(nil, LogLevelInfo, nil)
	}
	a := &EchoAdapter{logger: log}
	a.level.Store(uint32(echolog.INFO))
	return a
}

func (a *EchoAdapter) log(lvl echolog.Lvl, msg string, fields ...Field) {
	if lvl < a.Level() {
		return
	}
	switch lvl {
	case echolog.DEBUG:
		a.logger.Debug(msg, fields...)
	case echolog.WARN:
		a.logger.Warn(msg, fields...)
	case echolog.ERROR:
		a.logger.Error(msg, fields...)
	default:
		a.logger.Info(msg, fields...)
	}
}

// Output is unused; the wrapped Logger owns the outputs.
func (a *EchoAdapter) Output() io.Writer   { return io.Discard }
func (a *EchoAdapter) SetOutput(io.Writer) {}
func (a *EchoAdapter) Prefix() string      { return "" }
func (a *EchoAdapter) SetPrefix(string)    {}
func (a *EchoAdapter) SetHeader(string)    {}

func (a *EchoAdapter) Level() echolog.Lvl { return echolog.Lvl(a.level.Load()) }

func (a *EchoAdapter) SetLevel(lvl echolog.Lvl) { a.level.Store(uint32(lvl)) }

func (a *EchoAdapter) Print(i ...any)                 { a.log(echolog.INFO, fmt.Sprint(i...)) }
func (a *EchoAdapter) Printf(format string, v ...any) { a.log(echolog.INFO, fmt.Sprintf(format, v...)) }
func (a *EchoAdapter) Printj(j echolog.JSON)          { a.log(echolog.INFO, "echo", Any("data", j)) }

func (a *EchoAdapter) Debug(i ...any) { a.log(echolog.DEBUG, fmt.Sprint(i...)) }
func (a *EchoAdapter) Debugf(format string, v ...any) {
	a.log(echolog.DEBUG, fmt.Sprintf(format, v...))
}
func (a *EchoAdapter) Debugj(j echolog.JSON) { a.log(echolog.DEBUG, "echo", Any("data", j)) }

func (a *EchoAdapter) Info(i ...any)                 { a.log(echolog.INFO, fmt.Sprint(i...)) }
func (a *EchoAdapter) Infof(format string, v ...any) { a.log(echolog.INFO, fmt.Sprintf(format, v...)) }
func (a *EchoAdapter) Infoj(j echolog.JSON)          { a.log(echolog.INFO, "echo", Any("data", j)) }

func (a *EchoAdapter) Warn(i ...any)                 { a.log(echolog.WARN, fmt.Sprint(i...)) }
func (a *EchoAdapter) Warnf(format string, v ...any) { a.log(echolog.WARN, fmt.Sprintf(format, v...)) }
func (a *EchoAdapter) Warnj(j echolog.JSON)          { a.log(echolog.WARN, "echo", Any("data", j)) }

func (a *EchoAdapter) Error(i ...any) { a.log(echolog.ERROR, fmt.Sprint(i...)) }
func (a *EchoAdapter) Errorf(format string, v ...any) {
	a.log(echolog.ERROR, fmt.Sprintf(format, v...))
}
func (a *EchoAdapter) Errorj(j echolog.JSON) { a.log(echolog.ERROR, "echo", Any("data", j)) }

// Fatal and Panic log at error level, then panic.
func (a *EchoAdapter) Fatal(i ...any)                 { a.Panic(i...) }
func (a *EchoAdapter) Fatalf(format string, v ...any) { a.Panicf(format, v...) }
func (a *EchoAdapter) Fatalj(j echolog.JSON)          { a.Panicj(j) }

func (a *EchoAdapter) Panic(i ...any) {
	msg := fmt.Sprint(i...)
	a.logger.Error(msg)
	panic(msg)
}

func (a *EchoAdapter) Panicf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	a.logger.Error(msg)
	panic(msg)
}

func (a *EchoAdapter) Panicj(j echolog.JSON) {
	a.logger.Error("echo panic", Any("data", j))
	panic(fmt.Sprint(j))
}
