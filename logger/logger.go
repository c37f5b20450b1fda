package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// LogLevel is the severity of a log entry.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// LogEntry is a single structured log line.
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	IP        string                 `json:"ip,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
}

// Logger is the process-wide structured logger.
type Logger struct {
	level      LogLevel
	output     io.Writer
	fileWriter *os.File
	logDir     string
}

var defaultLogger *Logger

// Init sets up the logger, opening today's log file under logDir and
// fanning output out to stdout as well.
func Init(level LogLevel, logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("creating log directory: %v", err)
	}

	today := time.Now().Format("2006-01-02")
	logFile := filepath.Join(logDir, fmt.Sprintf("ordering-helper-%s.log", today))

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %v", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)

	defaultLogger = &Logger{
		level:      level,
		output:     multiWriter,
		fileWriter: file,
		logDir:     logDir,
	}

	Info("logger initialized", map[string]interface{}{
		"level":    levelNames[level],
		"log_dir":  logDir,
		"log_file": logFile,
	})

	return nil
}

// Close flushes and closes the underlying log file.
func Close() {
	if defaultLogger != nil && defaultLogger.fileWriter != nil {
		defaultLogger.fileWriter.Close()
	}
}

func getSource() string {
	_, file, line, ok := runtime.Caller(3)
	if !ok {
		return "unknown"
	}
	filename := filepath.Base(file)
	return fmt.Sprintf("%s:%d", filename, line)
}

func (l *Logger) writeLog(level LogLevel, message string, data map[string]interface{}, userID, ip, userAgent string) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     levelNames[level],
		Message:   message,
		Source:    getSource(),
		Data:      data,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		log.Printf("error marshalling log entry: %v", err)
		return
	}

	fmt.Fprintf(l.output, "%s\n", string(jsonData))
}

// Debug logs at DEBUG level.
func Debug(message string, data map[string]interface{}) {
	if defaultLogger != nil {
		defaultLogger.writeLog(DEBUG, message, data, "", "", "")
	}
}

// Info logs at INFO level.
func Info(message string, data map[string]interface{}) {
	if defaultLogger != nil {
		defaultLogger.writeLog(INFO, message, data, "", "", "")
	}
}

// Warn logs at WARN level.
func Warn(message string, data map[string]interface{}) {
	if defaultLogger != nil {
		defaultLogger.writeLog(WARN, message, data, "", "", "")
	}
}

// Error logs at ERROR level.
func Error(message string, data map[string]interface{}) {
	if defaultLogger != nil {
		defaultLogger.writeLog(ERROR, message, data, "", "", "")
	}
}

// Fatal logs at FATAL level and terminates the process.
func Fatal(message string, data map[string]interface{}) {
	if defaultLogger != nil {
		defaultLogger.writeLog(FATAL, message, data, "", "", "")
	}
	os.Exit(1)
}

// InfoWithContext logs at INFO level with caller identity attached.
func InfoWithContext(message string, data map[string]interface{}, userID, ip, userAgent string) {
	if defaultLogger != nil {
		defaultLogger.writeLog(INFO, message, data, userID, ip, userAgent)
	}
}

// WarnWithContext logs at WARN level with caller identity attached.
func WarnWithContext(message string, data map[string]interface{}, userID, ip, userAgent string) {
	if defaultLogger != nil {
		defaultLogger.writeLog(WARN, message, data, userID, ip, userAgent)
	}
}

// ErrorWithContext logs at ERROR level with caller identity attached.
func ErrorWithContext(message string, data map[string]interface{}, userID, ip, userAgent string) {
	if defaultLogger != nil {
		defaultLogger.writeLog(ERROR, message, data, userID, ip, userAgent)
	}
}

// SecurityEvent logs a security-relevant outcome at WARN level with a
// "SECURITY:" prefix.
func SecurityEvent(eventType, message string, userID, ip, userAgent string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["security_event"] = true
	data["event_type"] = eventType

	WarnWithContext(fmt.Sprintf("SECURITY: %s - %s", eventType, message), data, userID, ip, userAgent)
}

// AuditLog records an auditable action (a store created by the resolver, an
// OCR menu ingested) for later review.
func AuditLog(action, resource, message string, userID, ip, userAgent string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["audit"] = true
	data["action"] = action
	data["resource"] = resource

	InfoWithContext(fmt.Sprintf("AUDIT: %s on %s - %s", action, resource, message), data, userID, ip, userAgent)
}

// PerformanceLog records how long an operation took, escalating to WARN
// past one second.
func PerformanceLog(operation string, duration time.Duration, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["performance"] = true
	data["operation"] = operation
	data["duration_ms"] = duration.Milliseconds()

	if duration > time.Second {
		Warn(fmt.Sprintf("PERFORMANCE: slow operation - %s (%v)", operation, duration), data)
	} else {
		Debug(fmt.Sprintf("PERFORMANCE: %s (%v)", operation, duration), data)
	}
}

// CleanOldLogs removes log files older than daysToKeep.
func CleanOldLogs(daysToKeep int) error {
	if defaultLogger == nil {
		return fmt.Errorf("logger not initialized")
	}

	cutoff := time.Now().AddDate(0, 0, -daysToKeep)

	entries, err := os.ReadDir(defaultLogger.logDir)
	if err != nil {
		return fmt.Errorf("reading log directory: %v", err)
	}

	deletedCount := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), "ordering-helper-") && strings.HasSuffix(entry.Name(), ".log") {
			info, err := entry.Info()
			if err != nil {
				continue
			}

			if info.ModTime().Before(cutoff) {
				filePath := filepath.Join(defaultLogger.logDir, entry.Name())
				if err := os.Remove(filePath); err == nil {
					deletedCount++
				}
			}
		}
	}

	Info("log cleanup complete", map[string]interface{}{
		"files_deleted": deletedCount,
		"days_kept":     daysToKeep,
	})

	return nil
}
