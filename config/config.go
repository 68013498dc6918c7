package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// JIRA API設定
	JiraURL        string
	JiraEmail      string
	JiraAPIToken   string
	JiraProjectKey string

	// イシュータイプ設定
	StoryIssueType   string
	SubtaskIssueType string
	FeatureIssueType string

	// 追加フィールド設定
	AcceptanceCriteriaField string
	FeatureRequiredFields   string
	StoryRequiredFields     string

	// ディレクトリ設定
	InputDirectory     string
	ProcessedDirectory string
	LogsDirectory      string

	// 動作設定
	RollbackOnSubtaskFailure bool
	DryRun                   bool
	BatchSize                int
}

// LoadConfig は環境変数から設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	config := &Config{
		JiraURL:        strings.TrimRight(os.Getenv("JIRA_URL"), "/"),
		JiraEmail:      os.Getenv("JIRA_EMAIL"),
		JiraAPIToken:   os.Getenv("JIRA_API_TOKEN"),
		JiraProjectKey: os.Getenv("JIRA_PROJECT_KEY"),

		StoryIssueType:   getEnvWithDefault("STORY_ISSUE_TYPE", "Story"),
		SubtaskIssueType: getEnvWithDefault("SUBTASK_ISSUE_TYPE", "Sub-task"),
		FeatureIssueType: getEnvWithDefault("FEATURE_ISSUE_TYPE", "Feature"),

		AcceptanceCriteriaField: os.Getenv("ACCEPTANCE_CRITERIA_FIELD"),
		FeatureRequiredFields:   os.Getenv("FEATURE_REQUIRED_FIELDS"),
		StoryRequiredFields:     os.Getenv("STORY_REQUIRED_FIELDS"),

		InputDirectory:     getEnvWithDefault("INPUT_DIRECTORY", "input"),
		ProcessedDirectory: getEnvWithDefault("PROCESSED_DIRECTORY", "processed"),
		LogsDirectory:      getEnvWithDefault("LOGS_DIRECTORY", "logs"),

		RollbackOnSubtaskFailure: getEnvAsBoolWithDefault("ROLLBACK_ON_SUBTASK_FAILURE", false),
		DryRun:                   getEnvAsBoolWithDefault("DRY_RUN", false),
		BatchSize:                getEnvAsIntWithDefault("BATCH_SIZE", 10),
	}

	return config, nil
}

// ValidateRequired は必須の接続設定が揃っているかを確認します
func (c *Config) ValidateRequired() error {
	var missing []string

	if c.JiraURL == "" {
		missing = append(missing, "JIRA_URL")
	}
	if c.JiraEmail == "" {
		missing = append(missing, "JIRA_EMAIL")
	}
	if c.JiraAPIToken == "" {
		missing = append(missing, "JIRA_API_TOKEN")
	}
	if c.JiraProjectKey == "" {
		missing = append(missing, "JIRA_PROJECT_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}

	return nil
}

// ParseFeatureRequiredFields はFEATURE_REQUIRED_FIELDSのJSONを解析します
func (c *Config) ParseFeatureRequiredFields() (map[string]interface{}, error) {
	return parseFieldsJSON(c.FeatureRequiredFields)
}

// ParseStoryRequiredFields はSTORY_REQUIRED_FIELDSのJSONを解析します
func (c *Config) ParseStoryRequiredFields() (map[string]interface{}, error) {
	return parseFieldsJSON(c.StoryRequiredFields)
}

// JSON形式の追加フィールド設定を解析
func parseFieldsJSON(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	fields := make(map[string]interface{})
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("フィールドJSON解析エラー: %w", err)
	}

	return fields, nil
}

// デフォルト値付きで環境変数を取得
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// デフォルト値付きで環境変数を整数として取得
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// デフォルト値付きで環境変数を真偽値として取得
func getEnvAsBoolWithDefault(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
