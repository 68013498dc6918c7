package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"storiestojira/models"
)

// タイトル・サブタスクの最大文字数
const maxSummaryLength = 255

// ValidateStory は行のフィールド制約を検証します
// リモート呼び出しは行わず、最初の違反を返します
// チェック順序は固定で、エラーメッセージを決定的に保ちます
func ValidateStory(story models.UserStory) error {
	if strings.TrimSpace(story.Title) == "" {
		return fmt.Errorf("タイトルが空です")
	}
	if utf8.RuneCountInString(story.Title) > maxSummaryLength {
		return fmt.Errorf("タイトルが%d文字を超えています (%d文字)", maxSummaryLength, utf8.RuneCountInString(story.Title))
	}
	if strings.TrimSpace(story.Description) == "" {
		return fmt.Errorf("説明が空です")
	}

	for i, subtask := range story.Subtasks {
		if strings.TrimSpace(subtask) == "" {
			return fmt.Errorf("サブタスク %d が空です", i+1)
		}
		if utf8.RuneCountInString(subtask) > maxSummaryLength {
			return fmt.Errorf("サブタスク %d が%d文字を超えています", i+1, maxSummaryLength)
		}
	}

	if strings.TrimSpace(story.AcceptanceCriteria) != "" && len(story.SplitCriteria()) == 0 {
		return fmt.Errorf("受け入れ基準の形式が不正です")
	}

	return nil
}
