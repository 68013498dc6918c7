package services

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"storiestojira/config"
	"storiestojira/models"
	"storiestojira/utils"
)

// Pipeline はファイル単位のバッチ処理を駆動します
// 行は入力順に1件ずつ処理され、並列なイシュー作成は行いません
// (フィーチャーの重複作成防止は逐次処理によって保証されます)
type Pipeline struct {
	config *config.Config
	api    JiraAPI
	files  *FileProcessor
}

// FileReport は1ファイル分の処理報告を表します
type FileReport struct {
	Path       string
	FileName   string
	Batch      *models.BatchResult
	Err        error
	Archived   bool
	ArchivedTo string
}

// NewPipeline は新しいパイプラインを作成します
func NewPipeline(cfg *config.Config, api JiraAPI) *Pipeline {
	return &Pipeline{
		config: cfg,
		api:    api,
		files:  NewFileProcessor(cfg),
	}
}

// Run は複数ファイルを順番に処理し、ファイルごとの報告と全体集計を返します
func (p *Pipeline) Run(paths []string) ([]FileReport, *models.BatchResult, error) {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "バッチ処理全体")

	// 先に全ファイルを読み込み、前提条件の確認に使う
	storiesByPath := make(map[string][]models.UserStory, len(paths))
	reports := make([]FileReport, 0, len(paths))
	var allStories []models.UserStory

	for _, path := range paths {
		stories, err := p.files.ReadStories(path)
		if err != nil {
			reports = append(reports, FileReport{
				Path:     path,
				FileName: filepath.Base(path),
				Err:      err,
			})
			continue
		}
		storiesByPath[path] = stories
		allStories = append(allStories, stories...)
	}

	if len(storiesByPath) > 0 {
		if err := p.checkPrerequisites(allStories); err != nil {
			return nil, nil, err
		}
	}

	var allResults []models.ProcessResult

	for _, path := range paths {
		stories, ok := storiesByPath[path]
		if !ok {
			continue // 読み込み失敗は報告済み
		}

		fileName := filepath.Base(path)
		utils.LogInfo("ファイルの処理を開始します: %s", fileName)

		batch := p.ProcessStories(fileName, stories)
		report := FileReport{
			Path:     path,
			FileName: fileName,
			Batch:    batch,
		}

		// 1行以上成功したファイルのみアーカイブする (ドライラン時は移動しない)
		if batch.ShouldArchive() && !p.config.DryRun {
			dest, err := p.files.MoveToProcessed(path)
			if err != nil {
				utils.LogWarn("処理済みディレクトリへの移動に失敗しました: %v", err)
			} else {
				report.Archived = true
				report.ArchivedTo = dest
			}
		} else if !batch.ShouldArchive() {
			utils.LogWarn("成功した行がないためファイルを残します: %s", fileName)
		}

		reports = append(reports, report)
		allResults = append(allResults, batch.Results...)
	}

	var overall *models.BatchResult
	if len(allResults) > 0 {
		overall = models.NewBatchResult("", allResults)
	}

	return reports, overall, nil
}

// ProcessStories は1ファイル分のストーリーを処理します
// フィーチャーキャッシュはこの呼び出しのスコープで生成・破棄されます
func (p *Pipeline) ProcessStories(fileName string, stories []models.UserStory) *models.BatchResult {
	resolver := NewFeatureResolver(p.config, p.api)
	orchestrator := NewSubtaskOrchestrator(p.config, p.api)

	results := make([]models.ProcessResult, 0, len(stories))
	for i, story := range stories {
		results = append(results, p.processRow(resolver, orchestrator, story))

		if p.config.BatchSize > 0 && (i+1)%p.config.BatchSize == 0 {
			utils.LogInfo("処理済み: %d/%d 行", i+1, len(stories))
		}
	}

	return models.NewBatchResult(fileName, results)
}

// processRow は1行を検証 → 親解決 → ストーリー作成 → サブタスク作成の順で処理します
func (p *Pipeline) processRow(resolver *FeatureResolver, orchestrator *SubtaskOrchestrator, story models.UserStory) models.ProcessResult {
	result := models.ProcessResult{
		RowNumber: story.RowNumber,
		Title:     story.Title,
	}

	// 検証 (違反した行はリモート呼び出しに到達しない)
	if err := ValidateStory(story); err != nil {
		result.ErrorMessage = fmt.Sprintf("検証エラー: %v", err)
		utils.LogError("行 %d: %s", story.RowNumber, result.ErrorMessage)
		return result
	}

	// 親参照の解決
	feature, err := resolver.Resolve(models.ClassifyParent(story.Parent))
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("親解決エラー: %v", err)
		utils.LogError("行 %d: %s", story.RowNumber, result.ErrorMessage)
		return result
	}
	result.Feature = feature

	// ストーリー作成
	parentKey := ""
	if feature != nil {
		parentKey = feature.Key
	}

	storyKey, err := p.api.CreateIssue(models.NewIssue{
		Summary:     story.Title,
		Description: p.buildDescription(story),
		IssueType:   p.config.StoryIssueType,
		ParentKey:   parentKey,
		ExtraFields: p.storyExtraFields(story),
	})
	if err != nil {
		// ストーリー作成に失敗した行はサブタスクを試行しない
		result.ErrorMessage = fmt.Sprintf("ストーリー作成エラー: %v", err)
		utils.LogError("行 %d: %s", story.RowNumber, result.ErrorMessage)
		return result
	}

	utils.LogInfo("ストーリーを作成しました: %s (行 %d)", storyKey, story.RowNumber)
	result.JiraKey = storyKey

	// サブタスク作成とロールバック判定
	if len(story.Subtasks) > 0 {
		result.Subtasks = orchestrator.CreateSubtasks(storyKey, story.Subtasks)

		decision := orchestrator.MaybeRollback(storyKey, result.Subtasks)
		result.Warning = decision.Warning
		if decision.RolledBack {
			result.RolledBack = true
			result.JiraKey = ""
			result.ErrorMessage = fmt.Sprintf(
				"全サブタスクが失敗したためストーリーを削除しました (%d件): %s",
				len(result.Subtasks), AggregateErrors(result.Subtasks))
			return result
		}
	}

	result.Success = true
	return result
}

// buildDescription はストーリーの説明文を組み立てます
// 専用フィールドが未設定の場合は受け入れ基準を説明文に追記します
func (p *Pipeline) buildDescription(story models.UserStory) string {
	criteria := story.SplitCriteria()
	if p.config.AcceptanceCriteriaField != "" || len(criteria) == 0 {
		return story.Description
	}

	var builder strings.Builder
	builder.WriteString(story.Description)
	builder.WriteString("\n\n--- 受け入れ基準 ---\n")
	builder.WriteString(formatCriteria(criteria))
	return builder.String()
}

// storyExtraFields はストーリー作成用の追加フィールドを組み立てます
func (p *Pipeline) storyExtraFields(story models.UserStory) map[string]interface{} {
	fields, err := p.config.ParseStoryRequiredFields()
	if err != nil {
		utils.LogWarn("STORY_REQUIRED_FIELDSの解析に失敗しました: %v", err)
		fields = nil
	}

	criteria := story.SplitCriteria()
	if p.config.AcceptanceCriteriaField != "" && len(criteria) > 0 {
		if fields == nil {
			fields = make(map[string]interface{})
		}
		fields[p.config.AcceptanceCriteriaField] = formatCriteria(criteria)
	}

	return fields
}

// checkPrerequisites は処理開始前にプロジェクト設定の前提条件を確認します
func (p *Pipeline) checkPrerequisites(stories []models.UserStory) error {
	hasSubtasks := false
	hasFeatureDescriptions := false

	for _, story := range stories {
		if len(story.Subtasks) > 0 {
			hasSubtasks = true
		}
		if models.ClassifyParent(story.Parent).Kind == models.ParentFeatureDescription {
			hasFeatureDescriptions = true
		}
	}

	if !hasSubtasks && !hasFeatureDescriptions {
		return nil
	}

	types, err := p.api.GetIssueTypes()
	if err != nil {
		return fmt.Errorf("イシュータイプ取得エラー: %w", err)
	}

	if hasSubtasks && !hasIssueType(types, p.config.SubtaskIssueType, true) {
		return fmt.Errorf("サブタスクタイプ '%s' がプロジェクトに存在しません", p.config.SubtaskIssueType)
	}
	if hasFeatureDescriptions && !hasIssueType(types, p.config.FeatureIssueType, false) {
		return fmt.Errorf("フィーチャータイプ '%s' がプロジェクトに存在しません", p.config.FeatureIssueType)
	}

	return nil
}

// hasIssueType は指定の名前とサブタスク区分のイシュータイプを探します
func hasIssueType(types []models.IssueType, name string, subtask bool) bool {
	for _, t := range types {
		if t.Name == name && t.Subtask == subtask {
			return true
		}
	}
	return false
}

// formatCriteria は受け入れ基準を箇条書きに整形します
func formatCriteria(criteria []string) string {
	lines := make([]string, 0, len(criteria))
	for _, c := range criteria {
		lines = append(lines, "• "+c)
	}
	return strings.Join(lines, "\n")
}
