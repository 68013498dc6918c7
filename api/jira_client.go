package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"storiestojira/config"
	"storiestojira/models"
)

// StatusError はJIRA APIが返した失敗レスポンスを表します
type StatusError struct {
	StatusCode int
	Detail     string
}

// Error はエラーメッセージを返します
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

// JiraClient はJIRA APIとのやり取りを処理します
type JiraClient struct {
	config *config.Config
	client *http.Client
}

// NewJiraClient は新しいJIRAクライアントを作成します
func NewJiraClient(cfg *config.Config) *JiraClient {
	return &JiraClient{
		config: cfg,
		client: &http.Client{},
	}
}

// do は認証ヘッダー付きでリクエストを送信します
func (j *JiraClient) do(method, endpoint string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("JSONエンコードエラー: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, j.config.JiraURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	req.SetBasicAuth(j.config.JiraEmail, j.config.JiraAPIToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}

	return resp, nil
}

// statusError はレスポンスボディからStatusErrorを組み立てます
func statusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(resp.Body)
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = resp.Status
	}
	return &StatusError{StatusCode: resp.StatusCode, Detail: detail}
}

// CheckAuth はJIRA認証をチェックします
func (j *JiraClient) CheckAuth() error {
	resp, err := j.do(http.MethodGet, "/rest/api/2/myself", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("認証失敗: %w", statusError(resp))
	}

	return nil
}

// ValidateProject はプロジェクトが存在するかを確認します
func (j *JiraClient) ValidateProject(projectKey string) error {
	resp, err := j.do(http.MethodGet, "/rest/api/2/project/"+url.PathEscape(projectKey), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("プロジェクト %s が見つかりません", projectKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("プロジェクト確認失敗: %w", statusError(resp))
	}

	return nil
}

// IssueExists はイシューが存在するかを確認します
func (j *JiraClient) IssueExists(issueKey string) (bool, error) {
	resp, err := j.do(http.MethodGet, "/rest/api/2/issue/"+url.PathEscape(issueKey)+"?fields=key", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("イシュー確認失敗: %w", statusError(resp))
	}
}

// SearchIssues はプロジェクト内のイシューをタイトルで検索します
func (j *JiraClient) SearchIssues(issueType, titleFilter string) ([]models.IssueSummary, error) {
	jql := fmt.Sprintf(`project = "%s" AND issuetype = "%s" AND summary ~ "%s"`,
		escapeJQL(j.config.JiraProjectKey), escapeJQL(issueType), escapeJQL(titleFilter))

	params := url.Values{}
	params.Set("jql", jql)
	params.Set("maxResults", "10")
	params.Set("fields", "key,summary")

	resp, err := j.do(http.MethodGet, "/rest/api/2/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("イシュー検索失敗: %w", statusError(resp))
	}

	var result struct {
		Issues []struct {
			Key    string `json:"key"`
			Fields struct {
				Summary string `json:"summary"`
			} `json:"fields"`
		} `json:"issues"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	issues := make([]models.IssueSummary, 0, len(result.Issues))
	for _, issue := range result.Issues {
		issues = append(issues, models.IssueSummary{
			Key:     issue.Key,
			Summary: issue.Fields.Summary,
		})
	}

	return issues, nil
}

// CreateIssue はJIRAイシューを作成しキーを返します
func (j *JiraClient) CreateIssue(issue models.NewIssue) (string, error) {
	fields := map[string]interface{}{
		"project":   map[string]string{"key": j.config.JiraProjectKey},
		"summary":   issue.Summary,
		"issuetype": map[string]string{"name": issue.IssueType},
	}
	if issue.Description != "" {
		fields["description"] = issue.Description
	}
	if issue.ParentKey != "" {
		fields["parent"] = map[string]string{"key": issue.ParentKey}
	}
	for id, value := range issue.ExtraFields {
		fields[id] = value
	}

	resp, err := j.do(http.MethodPost, "/rest/api/2/issue", map[string]interface{}{"fields": fields})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("イシュー作成失敗: %w", statusError(resp))
	}

	var result struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("レスポンス解析エラー: %w", err)
	}
	if result.Key == "" {
		return "", fmt.Errorf("イシューキーが見つかりません")
	}

	return result.Key, nil
}

// DeleteIssue はJIRAイシューを削除します
func (j *JiraClient) DeleteIssue(issueKey string) error {
	resp, err := j.do(http.MethodDelete, "/rest/api/2/issue/"+url.PathEscape(issueKey), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("イシュー削除失敗: %w", statusError(resp))
	}

	return nil
}

// GetIssueTypes はプロジェクトで利用可能なイシュータイプを取得します
func (j *JiraClient) GetIssueTypes() ([]models.IssueType, error) {
	params := url.Values{}
	params.Set("projectKeys", j.config.JiraProjectKey)

	resp, err := j.do(http.MethodGet, "/rest/api/2/issue/createmeta?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("イシュータイプ取得失敗: %w", statusError(resp))
	}

	var result struct {
		Projects []struct {
			IssueTypes []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Subtask bool   `json:"subtask"`
			} `json:"issuetypes"`
		} `json:"projects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	if len(result.Projects) == 0 {
		return nil, fmt.Errorf("createmetaにプロジェクトが見つかりません")
	}

	types := make([]models.IssueType, 0, len(result.Projects[0].IssueTypes))
	for _, it := range result.Projects[0].IssueTypes {
		types = append(types, models.IssueType{ID: it.ID, Name: it.Name, Subtask: it.Subtask})
	}

	return types, nil
}

// GetFieldMetadata は指定イシュータイプのフィールドメタデータを取得します
func (j *JiraClient) GetFieldMetadata(issueTypeName string) (map[string]models.FieldMeta, error) {
	params := url.Values{}
	params.Set("projectKeys", j.config.JiraProjectKey)
	params.Set("issuetypeNames", issueTypeName)
	params.Set("expand", "projects.issuetypes.fields")

	resp, err := j.do(http.MethodGet, "/rest/api/2/issue/createmeta?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("フィールドメタデータ取得失敗: %w", statusError(resp))
	}

	var result struct {
		Projects []struct {
			IssueTypes []struct {
				Fields map[string]struct {
					Name          string `json:"name"`
					Required      bool   `json:"required"`
					AllowedValues []struct {
						ID    string `json:"id"`
						Value string `json:"value"`
						Name  string `json:"name"`
					} `json:"allowedValues"`
				} `json:"fields"`
			} `json:"issuetypes"`
		} `json:"projects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("レスポンス解析エラー: %w", err)
	}

	if len(result.Projects) == 0 || len(result.Projects[0].IssueTypes) == 0 {
		return nil, fmt.Errorf("イシュータイプ %s のメタデータが見つかりません", issueTypeName)
	}

	fields := make(map[string]models.FieldMeta)
	for id, f := range result.Projects[0].IssueTypes[0].Fields {
		meta := models.FieldMeta{
			ID:       id,
			Name:     f.Name,
			Required: f.Required,
		}
		for _, v := range f.AllowedValues {
			meta.AllowedValues = append(meta.AllowedValues, models.AllowedValue{
				ID:    v.ID,
				Value: v.Value,
				Name:  v.Name,
			})
		}
		fields[id] = meta
	}

	return fields, nil
}

// escapeJQL はJQL文字列値の特殊文字をエスケープします
func escapeJQL(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(escaped, `"`, `\"`)
}
