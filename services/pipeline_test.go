package services

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storiestojira/config"
	"storiestojira/models"
)

func pipelineConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	return &config.Config{
		JiraProjectKey:     "PROJ",
		StoryIssueType:     "Story",
		SubtaskIssueType:   "Sub-task",
		FeatureIssueType:   "Feature",
		InputDirectory:     filepath.Join(base, "input"),
		ProcessedDirectory: filepath.Join(base, "processed"),
		BatchSize:          10,
	}
}

func writeInputCSV(t *testing.T, cfg *config.Config, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.InputDirectory, 0o755))
	path := filepath.Join(cfg.InputDirectory, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessStoriesValidationShortCircuit(t *testing.T) {
	fake := newFakeJira()
	pipeline := NewPipeline(pipelineConfig(t), fake)

	batch := pipeline.ProcessStories("test.csv", []models.UserStory{
		{RowNumber: 2, Title: "", Description: "説明"},
	})

	require.Len(t, batch.Results, 1)
	assert.False(t, batch.Results[0].Success)
	assert.Contains(t, batch.Results[0].ErrorMessage, "検証エラー")
	// 検証に失敗した行はリモート呼び出しに到達しない
	assert.Equal(t, 0, fake.remoteCalls())
}

func TestProcessStoriesFullRow(t *testing.T) {
	fake := newFakeJira()
	pipeline := NewPipeline(pipelineConfig(t), fake)

	batch := pipeline.ProcessStories("test.csv", []models.UserStory{
		{
			RowNumber:   2,
			Title:       "ログイン機能",
			Description: "ユーザーがログインできる",
			Subtasks:    []string{"画面作成", "API実装"},
			Parent:      "認証基盤の整備",
		},
	})

	require.Len(t, batch.Results, 1)
	result := batch.Results[0]
	assert.True(t, result.Success)
	assert.Equal(t, "PROJ-2", result.JiraKey)

	require.NotNil(t, result.Feature)
	assert.Equal(t, "PROJ-1", result.Feature.Key)
	assert.Equal(t, models.FeatureCreated, result.Feature.Outcome)

	require.Len(t, result.Subtasks, 2)
	assert.Equal(t, "PROJ-3", result.Subtasks[0].Key)
	assert.Equal(t, "PROJ-4", result.Subtasks[1].Key)

	// フィーチャー → ストーリー → サブタスクの順で作成される
	require.Len(t, fake.created, 4)
	assert.Equal(t, "Feature", fake.created[0].IssueType)
	assert.Equal(t, "Story", fake.created[1].IssueType)
	assert.Equal(t, "PROJ-1", fake.created[1].ParentKey)
	assert.Equal(t, "PROJ-2", fake.created[2].ParentKey)
}

func TestProcessStoriesStoryCreateFailureSkipsSubtasks(t *testing.T) {
	fake := newFakeJira()
	fake.createErrFor["作れないストーリー"] = errors.New("権限エラー")
	pipeline := NewPipeline(pipelineConfig(t), fake)

	batch := pipeline.ProcessStories("test.csv", []models.UserStory{
		{
			RowNumber:   2,
			Title:       "作れないストーリー",
			Description: "説明",
			Subtasks:    []string{"サブタスク1"},
		},
	})

	require.Len(t, batch.Results, 1)
	assert.False(t, batch.Results[0].Success)
	assert.Contains(t, batch.Results[0].ErrorMessage, "ストーリー作成エラー")
	assert.Empty(t, batch.Results[0].Subtasks)
	assert.Equal(t, 1, fake.createCalls)
}

func TestProcessStoriesRollback(t *testing.T) {
	fake := newFakeJira()
	fake.createErrFor["サブタスク1"] = errors.New("失敗1")
	fake.createErrFor["サブタスク2"] = errors.New("失敗2")
	cfg := pipelineConfig(t)
	cfg.RollbackOnSubtaskFailure = true
	pipeline := NewPipeline(cfg, fake)

	batch := pipeline.ProcessStories("test.csv", []models.UserStory{
		{
			RowNumber:   2,
			Title:       "ストーリー",
			Description: "説明",
			Subtasks:    []string{"サブタスク1", "サブタスク2"},
		},
	})

	require.Len(t, batch.Results, 1)
	result := batch.Results[0]
	assert.False(t, result.Success)
	assert.True(t, result.RolledBack)
	assert.Empty(t, result.JiraKey)
	assert.Contains(t, result.ErrorMessage, "'サブタスク1': 失敗1")
	assert.Equal(t, []string{"PROJ-1"}, fake.deleted)

	assert.Equal(t, 0, batch.Successful)
	assert.False(t, batch.ShouldArchive())
}

func TestProcessStoriesPartialSubtaskFailure(t *testing.T) {
	fake := newFakeJira()
	fake.createErrFor["サブタスク2"] = errors.New("失敗")
	cfg := pipelineConfig(t)
	cfg.RollbackOnSubtaskFailure = true
	pipeline := NewPipeline(cfg, fake)

	batch := pipeline.ProcessStories("test.csv", []models.UserStory{
		{
			RowNumber:   2,
			Title:       "ストーリー",
			Description: "説明",
			Subtasks:    []string{"サブタスク1", "サブタスク2"},
		},
	})

	require.Len(t, batch.Results, 1)
	result := batch.Results[0]
	// 一部成功ならストーリーは残り、行は成功扱い
	assert.True(t, result.Success)
	assert.False(t, result.RolledBack)
	assert.Equal(t, "PROJ-1", result.JiraKey)
	assert.Equal(t, 1, result.SubtasksCreated())
	assert.Equal(t, 1, result.SubtasksFailed())
	assert.Equal(t, 0, fake.deleteCalls)
}

func TestDryRunLeavesJiraUntouched(t *testing.T) {
	fake := newFakeJira()
	cfg := pipelineConfig(t)
	cfg.DryRun = true
	cfg.RollbackOnSubtaskFailure = true
	pipeline := NewPipeline(cfg, NewDryRunClient(fake, cfg.FeatureIssueType))

	batch := pipeline.ProcessStories("test.csv", []models.UserStory{
		{
			RowNumber:   2,
			Title:       "ストーリー",
			Description: "説明",
			Subtasks:    []string{"サブタスク1"},
			Parent:      "新しいフィーチャー",
		},
	})

	require.Len(t, batch.Results, 1)
	result := batch.Results[0]
	assert.True(t, result.Success)
	assert.Equal(t, "DRY-RUN-1", result.JiraKey)
	require.NotNil(t, result.Feature)
	assert.Equal(t, "DRY-FEATURE-1", result.Feature.Key)

	// 書き込み系の操作は内部クライアントに到達しない
	assert.Equal(t, 0, fake.createCalls)
	assert.Equal(t, 0, fake.deleteCalls)
	// 検索は透過する
	assert.Equal(t, 1, fake.searchCalls)
}

func TestRunArchivesOnlySuccessfulFiles(t *testing.T) {
	fake := newFakeJira()
	cfg := pipelineConfig(t)
	pipeline := NewPipeline(cfg, fake)

	goodPath := writeInputCSV(t, cfg, "good.csv",
		"title,description\nストーリーA,説明A\n")
	badPath := writeInputCSV(t, cfg, "bad.csv",
		"title,description\n,説明だけ\n")

	reports, overall, err := pipeline.Run([]string{badPath, goodPath})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.False(t, reports[0].Archived)
	assert.True(t, reports[1].Archived)
	assert.FileExists(t, reports[1].ArchivedTo)
	assert.NoFileExists(t, goodPath)
	assert.FileExists(t, badPath)

	require.NotNil(t, overall)
	assert.Equal(t, 2, overall.TotalProcessed)
	assert.Equal(t, 1, overall.Successful)
}

func TestRunDryRunSkipsArchive(t *testing.T) {
	fake := newFakeJira()
	cfg := pipelineConfig(t)
	cfg.DryRun = true
	pipeline := NewPipeline(cfg, NewDryRunClient(fake, cfg.FeatureIssueType))

	path := writeInputCSV(t, cfg, "stories.csv",
		"title,description\nストーリーA,説明A\n")

	reports, _, err := pipeline.Run([]string{path})
	require.NoError(t, err)
	require.Len(t, reports, 1)

	assert.False(t, reports[0].Archived)
	assert.FileExists(t, path)
}

func TestRunReportsUnreadableFile(t *testing.T) {
	fake := newFakeJira()
	cfg := pipelineConfig(t)
	pipeline := NewPipeline(cfg, fake)

	reports, overall, err := pipeline.Run([]string{filepath.Join(cfg.InputDirectory, "missing.csv")})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Error(t, reports[0].Err)
	assert.Nil(t, overall)
	assert.Equal(t, 0, fake.remoteCalls())
}

func TestRunChecksPrerequisites(t *testing.T) {
	fake := newFakeJira()
	// プロジェクトにサブタスクタイプが無い
	fake.issueTypes = []models.IssueType{
		{ID: "1", Name: "Story"},
		{ID: "2", Name: "Feature"},
	}
	cfg := pipelineConfig(t)
	pipeline := NewPipeline(cfg, fake)

	path := writeInputCSV(t, cfg, "stories.csv",
		"title,description,subtasks\nストーリーA,説明A,サブタスク1\n")

	_, _, err := pipeline.Run([]string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sub-task")
	// 前提条件で失敗したらイシューは作成されない
	assert.Equal(t, 0, fake.createCalls)
}

func TestRunSkipsPrerequisiteCheckForPlainStories(t *testing.T) {
	fake := newFakeJira()
	cfg := pipelineConfig(t)
	pipeline := NewPipeline(cfg, fake)

	path := writeInputCSV(t, cfg, "stories.csv",
		"title,description\nストーリーA,説明A\n")

	_, _, err := pipeline.Run([]string{path})
	require.NoError(t, err)
	assert.Equal(t, 0, fake.typesCalls)
}

func TestBuildDescriptionAppendsCriteria(t *testing.T) {
	pipeline := NewPipeline(pipelineConfig(t), newFakeJira())

	story := models.UserStory{
		Description:        "本文",
		AcceptanceCriteria: "基準1;基準2",
	}

	description := pipeline.buildDescription(story)
	assert.Contains(t, description, "本文")
	assert.Contains(t, description, "--- 受け入れ基準 ---")
	assert.Contains(t, description, "• 基準1")
	assert.Contains(t, description, "• 基準2")
}

func TestBuildDescriptionWithDedicatedFieldLeavesBodyClean(t *testing.T) {
	cfg := pipelineConfig(t)
	cfg.AcceptanceCriteriaField = "customfield_10100"
	pipeline := NewPipeline(cfg, newFakeJira())

	story := models.UserStory{
		Description:        "本文",
		AcceptanceCriteria: "基準1",
	}

	assert.Equal(t, "本文", pipeline.buildDescription(story))

	fields := pipeline.storyExtraFields(story)
	assert.Equal(t, "• 基準1", fields["customfield_10100"])
}
