package services

import (
	"fmt"
	"strings"

	"storiestojira/config"
	"storiestojira/models"
	"storiestojira/utils"
)

// SubtaskOrchestrator はストーリー配下のサブタスク作成とロールバックを担当します
type SubtaskOrchestrator struct {
	api    JiraAPI
	config *config.Config
}

// NewSubtaskOrchestrator は新しいオーケストレーターを作成します
func NewSubtaskOrchestrator(cfg *config.Config, api JiraAPI) *SubtaskOrchestrator {
	return &SubtaskOrchestrator{
		api:    api,
		config: cfg,
	}
}

// CreateSubtasks はサブタスクを入力順に作成します
// 1つの失敗は残りのサブタスクを中断せず、全タイトルに結果を返します
func (o *SubtaskOrchestrator) CreateSubtasks(storyKey string, titles []string) []models.SubtaskResult {
	results := make([]models.SubtaskResult, 0, len(titles))

	for _, title := range titles {
		key, err := o.api.CreateIssue(models.NewIssue{
			Summary:   title,
			IssueType: o.config.SubtaskIssueType,
			ParentKey: storyKey,
		})
		if err != nil {
			utils.LogError("サブタスク作成失敗 '%s': %v", title, err)
			results = append(results, models.SubtaskResult{
				Title:        title,
				ErrorMessage: err.Error(),
			})
			continue
		}

		utils.LogInfo("サブタスクを作成しました: %s (%s)", key, storyKey)
		results = append(results, models.SubtaskResult{Title: title, Key: key})
	}

	return results
}

// RollbackDecision はロールバック判定の結果を表します
type RollbackDecision struct {
	RolledBack bool
	Warning    string
}

// MaybeRollback は全サブタスク失敗時のストーリー削除を判定・実行します
// 削除はベストエフォートで、失敗しても警告に留めます
func (o *SubtaskOrchestrator) MaybeRollback(storyKey string, results []models.SubtaskResult) RollbackDecision {
	if !o.config.RollbackOnSubtaskFailure {
		return RollbackDecision{}
	}
	if len(results) == 0 {
		return RollbackDecision{}
	}
	for _, r := range results {
		if r.Succeeded() {
			return RollbackDecision{}
		}
	}

	if err := o.api.DeleteIssue(storyKey); err != nil {
		warning := fmt.Sprintf("ロールバック失敗 (ストーリー %s は残っています): %v", storyKey, err)
		utils.LogWarn("%s", warning)
		return RollbackDecision{Warning: warning}
	}

	utils.LogWarn("全サブタスクが失敗したためストーリー %s を削除しました", storyKey)
	return RollbackDecision{RolledBack: true}
}

// AggregateErrors はサブタスクの失敗理由をまとめた文字列を返します
func AggregateErrors(results []models.SubtaskResult) string {
	var reasons []string
	for _, r := range results {
		if !r.Succeeded() {
			reasons = append(reasons, fmt.Sprintf("'%s': %s", r.Title, r.ErrorMessage))
		}
	}
	return strings.Join(reasons, "; ")
}
