package services

import (
	"fmt"

	"storiestojira/models"
	"storiestojira/utils"
)

// DryRunClient は書き込み系のJIRA操作を実行せずに成功を返すラッパーです
// 読み取り系の操作 (存在確認・検索・メタデータ取得) はそのまま透過します
type DryRunClient struct {
	inner       JiraAPI
	featureType string
	issueSeq    int
	featureSeq  int
}

// NewDryRunClient は新しいドライランクライアントを作成します
func NewDryRunClient(inner JiraAPI, featureIssueType string) *DryRunClient {
	return &DryRunClient{
		inner:       inner,
		featureType: featureIssueType,
	}
}

// IssueExists は内部クライアントに委譲します
func (d *DryRunClient) IssueExists(issueKey string) (bool, error) {
	return d.inner.IssueExists(issueKey)
}

// SearchIssues は内部クライアントに委譲します
func (d *DryRunClient) SearchIssues(issueType, titleFilter string) ([]models.IssueSummary, error) {
	return d.inner.SearchIssues(issueType, titleFilter)
}

// CreateIssue は作成を実行せず連番の仮キーを返します
func (d *DryRunClient) CreateIssue(issue models.NewIssue) (string, error) {
	if issue.IssueType == d.featureType {
		d.featureSeq++
		key := fmt.Sprintf("DRY-FEATURE-%d", d.featureSeq)
		utils.LogInfo("[DRY RUN] フィーチャー作成をスキップ: %s (%s)", truncateForLog(issue.Summary), key)
		return key, nil
	}

	d.issueSeq++
	key := fmt.Sprintf("DRY-RUN-%d", d.issueSeq)
	utils.LogInfo("[DRY RUN] イシュー作成をスキップ: %s (%s)", truncateForLog(issue.Summary), key)
	return key, nil
}

// DeleteIssue は削除を実行せず成功を返します
func (d *DryRunClient) DeleteIssue(issueKey string) error {
	utils.LogInfo("[DRY RUN] イシュー削除をスキップ: %s", issueKey)
	return nil
}

// GetIssueTypes は内部クライアントに委譲します
func (d *DryRunClient) GetIssueTypes() ([]models.IssueType, error) {
	return d.inner.GetIssueTypes()
}

// GetFieldMetadata は内部クライアントに委譲します
func (d *DryRunClient) GetFieldMetadata(issueTypeName string) (map[string]models.FieldMeta, error) {
	return d.inner.GetFieldMetadata(issueTypeName)
}

// ログ表示用にタイトルを短縮
func truncateForLog(text string) string {
	runes := []rune(text)
	if len(runes) <= 50 {
		return text
	}
	return string(runes[:50]) + "..."
}
