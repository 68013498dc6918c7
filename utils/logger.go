package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

// init関数はパッケージがインポートされたときに自動的に実行されます
func init() {
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLevel はログレベルを文字列から設定します (DEBUG/INFO/WARN/ERROR)
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("不明なログレベル '%s' のためINFOを使用します", level)
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
}

// InitFileLogging はログをコンソールとログファイルの両方に出力するようにします
func InitFileLogging(logsDir string) error {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("ログディレクトリ作成エラー: %w", err)
	}

	logPath := filepath.Join(logsDir, "jira_batch.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ログファイルオープンエラー: %w", err)
	}

	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	return nil
}

// LogDebug はデバッグレベルのメッセージをログに記録します
func LogDebug(format string, v ...interface{}) {
	logger.Debugf(format, v...)
}

// LogInfo は情報レベルのメッセージをログに記録します
func LogInfo(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

// LogWarn は警告レベルのメッセージをログに記録します
func LogWarn(format string, v ...interface{}) {
	logger.Warnf(format, v...)
}

// LogError はエラーレベルのメッセージをログに記録します
func LogError(format string, v ...interface{}) {
	logger.Errorf(format, v...)
}

// TrackTime は関数の実行時間を計測して出力するユーティリティです
func TrackTime(start time.Time, name string) {
	elapsed := time.Since(start)
	LogInfo("%s 完了時間: %s", name, elapsed)
}
