package services

import (
	"fmt"

	"storiestojira/models"
)

// fakeJira はJiraAPIのテストダブルです
// 呼び出し回数を記録し、失敗の注入ができます
type fakeJira struct {
	existsCalls int
	searchCalls int
	createCalls int
	deleteCalls int
	typesCalls  int
	metaCalls   int

	existingIssues map[string]bool
	existsErr      error

	searchResults []models.IssueSummary
	searchErr     error

	keySeq       int
	createErrFor map[string]error
	created      []models.NewIssue

	deleteErr error
	deleted   []string

	issueTypes []models.IssueType
	meta       map[string]models.FieldMeta
}

func newFakeJira() *fakeJira {
	return &fakeJira{
		existingIssues: make(map[string]bool),
		createErrFor:   make(map[string]error),
		issueTypes: []models.IssueType{
			{ID: "1", Name: "Story"},
			{ID: "2", Name: "Feature"},
			{ID: "3", Name: "Sub-task", Subtask: true},
		},
		meta: make(map[string]models.FieldMeta),
	}
}

func (f *fakeJira) IssueExists(issueKey string) (bool, error) {
	f.existsCalls++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existingIssues[issueKey], nil
}

func (f *fakeJira) SearchIssues(issueType, titleFilter string) ([]models.IssueSummary, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults, nil
}

func (f *fakeJira) CreateIssue(issue models.NewIssue) (string, error) {
	f.createCalls++
	f.created = append(f.created, issue)
	if err, ok := f.createErrFor[issue.Summary]; ok {
		return "", err
	}
	f.keySeq++
	return fmt.Sprintf("PROJ-%d", f.keySeq), nil
}

func (f *fakeJira) DeleteIssue(issueKey string) error {
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, issueKey)
	return nil
}

func (f *fakeJira) GetIssueTypes() ([]models.IssueType, error) {
	f.typesCalls++
	return f.issueTypes, nil
}

func (f *fakeJira) GetFieldMetadata(issueTypeName string) (map[string]models.FieldMeta, error) {
	f.metaCalls++
	return f.meta, nil
}

// remoteCalls は全リモート呼び出しの合計を返します
func (f *fakeJira) remoteCalls() int {
	return f.existsCalls + f.searchCalls + f.createCalls + f.deleteCalls + f.typesCalls + f.metaCalls
}
