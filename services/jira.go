package services

import (
	"storiestojira/models"
)

// JiraAPI はパイプラインが必要とするJIRA操作を表します
// *api.JiraClient が実装し、テストではフェイクに差し替えます
type JiraAPI interface {
	IssueExists(issueKey string) (bool, error)
	SearchIssues(issueType, titleFilter string) ([]models.IssueSummary, error)
	CreateIssue(issue models.NewIssue) (string, error)
	DeleteIssue(issueKey string) error
	GetIssueTypes() ([]models.IssueType, error)
	GetFieldMetadata(issueTypeName string) (map[string]models.FieldMeta, error)
}
