package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/rowatch/internal/setup/config"
	"github.com/robalyx/rowatch/internal/setup/telemetry/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Manager handles the creation and management of log files and directories.
// Every run gets its own timestamped session directory.
type Manager struct {
	instanceID        string               // Unique identifier for this program instance
	currentSessionDir string               // Path to the current session's log directory
	logDir            string               // Base directory for all logs
	level             string               // Logging level (debug, info, warn, error)
	maxLogsToKeep     int                  // Maximum number of log sessions to retain
	maxLogLines       int                  // Maximum number of lines to keep in each log file
	console           bool                 // Mirror logs to stderr
	rotators          []*logger.LogRotator // Open log files
	mu                sync.Mutex
}

// NewManager creates a new Manager instance.
func NewManager(debugCfg *config.Debug, console bool) *Manager {
	return &Manager{
		instanceID:    uuid.New().String(),
		logDir:        debugCfg.LogDir,
		level:         debugCfg.LogLevel,
		maxLogsToKeep: debugCfg.MaxLogsToKeep,
		maxLogLines:   debugCfg.MaxLogLines,
		console:       console,
	}
}

// GetLoggers initializes the main and storage loggers.
func (lm *Manager) GetLoggers() (*zap.Logger, *zap.Logger, error) {
	if err := lm.setupLogDirectories(); err != nil {
		return nil, nil, err
	}

	mainLogger, err := lm.initLogger(filepath.Join(lm.currentSessionDir, "main.log"), lm.console)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize main logger: %w", err)
	}

	storageLogger, err := lm.initLogger(filepath.Join(lm.currentSessionDir, "storage.log"), false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage logger: %w", err)
	}

	mainLogger = mainLogger.With(zap.String("instanceID", lm.instanceID))

	return mainLogger, storageLogger, nil
}

// GetWorkerLogger creates a logger for a background tracker.
// Each tracker gets its own log file in the session directory.
func (lm *Manager) GetWorkerLogger(name string) *zap.Logger {
	sessionDir := lm.getOrCreateSessionDir()

	logger, err := lm.initLogger(filepath.Join(sessionDir, name+".log"), lm.console)
	if err != nil {
		return zap.NewNop()
	}

	return logger.Named(name)
}

// GetCurrentSessionDir returns the current session directory.
func (lm *Manager) GetCurrentSessionDir() string {
	return lm.getOrCreateSessionDir()
}

// GetInstanceID returns the unique instance identifier for this program run.
func (lm *Manager) GetInstanceID() string {
	return lm.instanceID
}

// Close closes every log file opened by the manager.
func (lm *Manager) Close() {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	for _, rotator := range lm.rotators {
		_ = rotator.Sync()
		_ = rotator.Close()
	}

	lm.rotators = nil
}

// setupLogDirectories ensures the base directory exists, rotates old
// sessions and creates a new session directory.
func (lm *Manager) setupLogDirectories() error {
	if err := os.MkdirAll(lm.logDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	if err := lm.rotateLogSessions(); err != nil {
		return fmt.Errorf("failed to rotate log sessions: %w", err)
	}

	lm.currentSessionDir = filepath.Join(lm.logDir, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(lm.currentSessionDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	return nil
}

// getOrCreateSessionDir returns the current session directory or creates a new one.
// Falls back to base log directory if creation fails.
func (lm *Manager) getOrCreateSessionDir() string {
	if lm.currentSessionDir != "" {
		return lm.currentSessionDir
	}

	sessionDir := filepath.Join(lm.logDir, time.Now().Format("2006-01-02_15-04-05"))
	if err := os.MkdirAll(sessionDir, os.ModePerm); err != nil {
		return lm.logDir
	}

	lm.currentSessionDir = sessionDir

	return sessionDir
}

// initLogger creates a zap logger writing console-encoded lines to a line-capped file.
func (lm *Manager) initLogger(path string, console bool) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(lm.level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	rotator, err := logger.OpenLogRotator(path, lm.maxLogLines)
	if err != nil {
		return nil, err
	}

	lm.mu.Lock()
	lm.rotators = append(lm.rotators, rotator)
	lm.mu.Unlock()

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(rotator), zapLevel),
	}

	if console {
		colored := encoderConfig
		colored.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(colored), zapcore.Lock(os.Stderr), zapLevel))
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// rotateLogSessions keeps only the most recent sessions based on maxLogsToKeep.
func (lm *Manager) rotateLogSessions() error {
	sessions, err := filepath.Glob(filepath.Join(lm.logDir, "*"))
	if err != nil {
		return err
	}

	// Leave room for the session about to be created
	keep := lm.maxLogsToKeep - 1
	if len(sessions) <= keep {
		return nil
	}

	sort.Slice(sessions, func(i, j int) bool {
		iInfo, _ := os.Stat(sessions[i])
		jInfo, _ := os.Stat(sessions[j])

		return iInfo.ModTime().Before(jInfo.ModTime())
	})

	for i := range len(sessions) - keep {
		if err := os.RemoveAll(sessions[i]); err != nil {
			return err
		}
	}

	return nil
}
