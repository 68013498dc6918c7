package models

import (
	"regexp"
	"strings"
)

// UserStory はスプレッドシートの1行から読み込んだユーザーストーリーを表します
type UserStory struct {
	RowNumber          int
	Title              string
	Description        string
	AcceptanceCriteria string   // ';' または改行区切りの原文
	Subtasks           []string // 分割済みのサブタスクタイトル
	Parent             string   // 既存キーまたはフィーチャー説明文
}

// SplitCriteria は受け入れ基準を項目ごとに分割して返します
func (s UserStory) SplitCriteria() []string {
	return SplitListField(s.AcceptanceCriteria)
}

// SplitListField は ';' と改行で区切られたリストフィールドを分割します
func SplitListField(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ";") {
		for _, item := range strings.Split(part, "\n") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}

// ParentRefKind は親参照の分類を表します
type ParentRefKind int

const (
	// ParentEmpty は親参照が空であることを表します
	ParentEmpty ParentRefKind = iota
	// ParentExistingKey は既存イシューのキー (例: PROJ-123) を表します
	ParentExistingKey
	// ParentFeatureDescription はフィーチャーの説明文を表します
	ParentFeatureDescription
)

// JIRAキーの厳密なパターン (大文字プレフィックス + ハイフン + 数字)
var jiraKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*-\d+$`)

// ParentRef は分類済みの親参照を表します
type ParentRef struct {
	Kind        ParentRefKind
	Key         string // ParentExistingKey の場合のみ
	Description string // ParentFeatureDescription の場合のみ
}

// ClassifyParent は親参照の生文字列を分類します
func ClassifyParent(raw string) ParentRef {
	trimmed := strings.TrimSpace(raw)

	if trimmed == "" {
		return ParentRef{Kind: ParentEmpty}
	}
	if jiraKeyPattern.MatchString(trimmed) {
		return ParentRef{Kind: ParentExistingKey, Key: trimmed}
	}
	return ParentRef{Kind: ParentFeatureDescription, Description: trimmed}
}

// IssueSummary は検索結果のイシュー概要を表します
type IssueSummary struct {
	Key     string
	Summary string
}

// IssueType はプロジェクトで利用可能なイシュータイプを表します
type IssueType struct {
	ID      string
	Name    string
	Subtask bool
}

// AllowedValue はフィールドの選択可能な値を表します
type AllowedValue struct {
	ID    string
	Value string
	Name  string
}

// FieldMeta はイシュー作成時のフィールドメタデータを表します
type FieldMeta struct {
	ID            string
	Name          string
	Required      bool
	AllowedValues []AllowedValue
}

// NewIssue はイシュー作成リクエストの内容を表します
type NewIssue struct {
	Summary     string
	Description string
	IssueType   string
	ParentKey   string
	ExtraFields map[string]interface{}
}

// FeatureOutcome は親フィーチャーの解決方法を表します
type FeatureOutcome int

const (
	// FeatureCreated は新しいフィーチャーを作成したことを表します
	FeatureCreated FeatureOutcome = iota
	// FeatureReused は既存フィーチャーを再利用したことを表します (キャッシュまたは検索ヒット)
	FeatureReused
	// FeatureLinked は既存キーをそのままリンクしたことを表します
	FeatureLinked
)

// FeatureResult は親フィーチャーの解決結果を表します
type FeatureResult struct {
	Key          string
	Outcome      FeatureOutcome
	OriginalText string
}

// SubtaskResult は1つのサブタスクの作成結果を表します
type SubtaskResult struct {
	Title        string
	Key          string
	ErrorMessage string
}

// Succeeded はサブタスクの作成に成功したかを返します
func (r SubtaskResult) Succeeded() bool {
	return r.ErrorMessage == ""
}

// ProcessResult は1行の処理結果を表します
type ProcessResult struct {
	RowNumber    int
	Title        string
	Success      bool
	JiraKey      string
	ErrorMessage string
	Warning      string
	Subtasks     []SubtaskResult
	Feature      *FeatureResult
	RolledBack   bool
}

// SubtasksCreated は作成に成功したサブタスク数を返します
func (r ProcessResult) SubtasksCreated() int {
	count := 0
	for _, s := range r.Subtasks {
		if s.Succeeded() {
			count++
		}
	}
	return count
}

// SubtasksFailed は作成に失敗したサブタスク数を返します
func (r ProcessResult) SubtasksFailed() int {
	return len(r.Subtasks) - r.SubtasksCreated()
}

// BatchResult は1ファイル分の処理結果の集計を表します
type BatchResult struct {
	FileName        string
	TotalProcessed  int
	Successful      int
	Failed          int
	FeaturesCreated int
	FeaturesReused  int
	SubtasksCreated int
	SubtasksFailed  int
	Results         []ProcessResult
}

// NewBatchResult は行ごとの結果から集計を作成します
func NewBatchResult(fileName string, results []ProcessResult) *BatchResult {
	batch := &BatchResult{
		FileName:       fileName,
		TotalProcessed: len(results),
		Results:        results,
	}

	for _, r := range results {
		if r.Success {
			batch.Successful++
		} else {
			batch.Failed++
		}
		if r.Feature != nil {
			switch r.Feature.Outcome {
			case FeatureCreated:
				batch.FeaturesCreated++
			case FeatureReused:
				batch.FeaturesReused++
			}
		}
		batch.SubtasksCreated += r.SubtasksCreated()
		batch.SubtasksFailed += r.SubtasksFailed()
	}

	return batch
}

// ShouldArchive は1行以上成功した場合にファイルをアーカイブ対象とします
func (b *BatchResult) ShouldArchive() bool {
	return b.Successful > 0
}
