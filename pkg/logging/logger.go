package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu       sync.Mutex
	debugLog *log.Logger
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger
)

func init() {
	// Sensible default until Setup runs; tests log to stdout only.
	configure(io.Discard)
}

// Setup directs logs to stdout and a size-rotated file under logDir.
func Setup(logDir string) {
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "examdesk.log"),
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	configure(rotator)
}

func configure(fileSink io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	out := io.MultiWriter(os.Stdout, fileSink)
	errOut := io.MultiWriter(os.Stderr, fileSink)

	debugLog = log.New(out, "DEBUG: ", log.Ldate|log.Ltime)
	infoLog = log.New(out, "INFO: ", log.Ldate|log.Ltime)
	warnLog = log.New(out, "WARNING: ", log.Ldate|log.Ltime)
	errorLog = log.New(errOut, "ERROR: ", log.Ldate|log.Ltime)

	// Route the stdlib default logger through the same sink.
	log.SetOutput(out)
}

func Debug(format string, v ...interface{}) {
	debugLog.Println(fmt.Sprintf(format, v...))
}

func Info(format string, v ...interface{}) {
	infoLog.Println(fmt.Sprintf(format, v...))
}

func Warn(format string, v ...interface{}) {
	warnLog.Println(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	errorLog.Println(fmt.Sprintf(format, v...))
}
