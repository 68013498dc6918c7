package services

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"storiestojira/config"
	"storiestojira/models"
	"storiestojira/utils"
)

// フィーチャータイトルの最大表示文字数
const maxFeatureTitleLength = 120

var (
	// ErrParentKeyNotFound は指定された親キーがJIRAに存在しないことを表します
	ErrParentKeyNotFound = errors.New("親イシューキーが存在しません")
	// ErrFeatureCreationFailed はフィーチャーの作成が拒否されたことを表します
	ErrFeatureCreationFailed = errors.New("フィーチャー作成に失敗しました")
)

// 作成ペイロードで常に設定済みの基本フィールド
var baseIssueFields = map[string]bool{
	"project":     true,
	"summary":     true,
	"issuetype":   true,
	"description": true,
	"parent":      true,
}

// FeatureResolver は親参照をイシューキーに解決します
// キャッシュは1バッチ実行のスコープで保持され、同じ正規化済み説明文に対して
// 複数のフィーチャーが作成されることを防ぎます
type FeatureResolver struct {
	api    JiraAPI
	config *config.Config

	// 正規化済み説明文 → フィーチャーキー
	cache map[string]string

	// フィーチャー作成用の追加フィールド (遅延取得)
	metaLoaded      bool
	extraFields     map[string]interface{}
	epicNameFieldID string
}

// NewFeatureResolver はバッチ1回分のリゾルバを作成します
func NewFeatureResolver(cfg *config.Config, api JiraAPI) *FeatureResolver {
	return &FeatureResolver{
		api:    api,
		config: cfg,
		cache:  make(map[string]string),
	}
}

// Resolve は分類済みの親参照を解決します
// 親なしの場合は (nil, nil) を返します
func (r *FeatureResolver) Resolve(ref models.ParentRef) (*models.FeatureResult, error) {
	switch ref.Kind {
	case models.ParentEmpty:
		return nil, nil

	case models.ParentExistingKey:
		// 既存キーは存在確認のみを行い、作成には決してフォールバックしない
		exists, err := r.api.IssueExists(ref.Key)
		if err != nil {
			return nil, fmt.Errorf("親イシュー確認エラー: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrParentKeyNotFound, ref.Key)
		}
		return &models.FeatureResult{
			Key:          ref.Key,
			Outcome:      models.FeatureLinked,
			OriginalText: ref.Key,
		}, nil

	case models.ParentFeatureDescription:
		return r.resolveDescription(ref.Description)

	default:
		return nil, fmt.Errorf("不明な親参照の種類: %d", ref.Kind)
	}
}

// resolveDescription は説明文からフィーチャーを解決 (再利用または作成) します
func (r *FeatureResolver) resolveDescription(description string) (*models.FeatureResult, error) {
	normalized := NormalizeDescription(description)

	// 1. バッチ内キャッシュ
	if cached, ok := r.cache[normalized]; ok {
		utils.LogDebug("キャッシュ済みフィーチャーを使用: %s", cached)
		return &models.FeatureResult{
			Key:          cached,
			Outcome:      models.FeatureReused,
			OriginalText: description,
		}, nil
	}

	// 2. JIRA上の既存フィーチャーを検索
	existingKey, err := r.searchExistingFeature(description)
	if err != nil {
		// 検索失敗は致命的にせず、新規作成にフォールバックする
		utils.LogWarn("既存フィーチャーの検索に失敗しました: %v", err)
	}
	if existingKey != "" {
		r.cache[normalized] = existingKey
		utils.LogInfo("既存フィーチャーを再利用: %s (%s)", existingKey, truncateForLog(description))
		return &models.FeatureResult{
			Key:          existingKey,
			Outcome:      models.FeatureReused,
			OriginalText: description,
		}, nil
	}

	// 3. 新規作成
	newKey, err := r.createFeature(description)
	if err != nil {
		// 失敗時は何もキャッシュしない
		return nil, fmt.Errorf("%w: %v", ErrFeatureCreationFailed, err)
	}

	// 切り詰め前の説明文の正規化キーでキャッシュする
	r.cache[normalized] = newKey
	utils.LogInfo("フィーチャーを作成: %s (%s)", newKey, truncateForLog(description))
	return &models.FeatureResult{
		Key:          newKey,
		Outcome:      models.FeatureCreated,
		OriginalText: description,
	}, nil
}

// searchExistingFeature はタイトルが一致する既存フィーチャーを検索します
// サーバー側の検索は候補取得のみに使い、採用判定は正規化した完全一致で行います
func (r *FeatureResolver) searchExistingFeature(description string) (string, error) {
	expectedTitle := generateFeatureTitle(description)
	wantNormalized := NormalizeDescription(expectedTitle)

	candidates, err := r.api.SearchIssues(r.config.FeatureIssueType, expectedTitle)
	if err != nil {
		return "", err
	}

	// キーの昇順で最初の一致を採用する (決定的なタイブレーク)
	sort.Slice(candidates, func(i, j int) bool {
		return lessIssueKey(candidates[i].Key, candidates[j].Key)
	})

	for _, candidate := range candidates {
		if NormalizeDescription(candidate.Summary) == wantNormalized {
			return candidate.Key, nil
		}
	}

	return "", nil
}

// createFeature は新しいフィーチャーイシューを作成します
func (r *FeatureResolver) createFeature(description string) (string, error) {
	title := generateFeatureTitle(description)

	extra := r.featureExtraFields()
	fields := make(map[string]interface{}, len(extra)+1)
	for id, value := range extra {
		fields[id] = value
	}
	if r.epicNameFieldID != "" {
		fields[r.epicNameFieldID] = title
	}

	return r.api.CreateIssue(models.NewIssue{
		Summary:     title,
		Description: description,
		IssueType:   r.config.FeatureIssueType,
		ExtraFields: fields,
	})
}

// featureExtraFields はフィーチャー作成に必要な追加フィールドを返します
// 設定のJSONが優先され、無ければcreatemetaから必須フィールドを自動検出します
// メタデータは1バッチにつき1回だけ取得します
func (r *FeatureResolver) featureExtraFields() map[string]interface{} {
	if r.metaLoaded {
		return r.extraFields
	}
	r.metaLoaded = true

	configured, err := r.config.ParseFeatureRequiredFields()
	if err != nil {
		utils.LogWarn("FEATURE_REQUIRED_FIELDSの解析に失敗しました: %v", err)
	}

	meta, err := r.api.GetFieldMetadata(r.config.FeatureIssueType)
	if err != nil {
		utils.LogWarn("フィーチャーのフィールドメタデータ取得に失敗しました: %v", err)
		r.extraFields = configured
		return r.extraFields
	}

	r.epicNameFieldID = detectEpicNameField(meta)

	if len(configured) > 0 {
		r.extraFields = configured
		return r.extraFields
	}

	r.extraFields = suggestRequiredFields(meta)
	return r.extraFields
}

// detectEpicNameField はEpic Name系のフィールドIDを検出します
func detectEpicNameField(meta map[string]models.FieldMeta) string {
	for id, field := range meta {
		name := strings.ToLower(field.Name)
		if strings.Contains(name, "epic") && strings.Contains(name, "name") {
			utils.LogDebug("Epic Nameフィールドを検出: %s (%s)", field.Name, id)
			return id
		}
	}
	return ""
}

// suggestRequiredFields は必須フィールドに最初の選択可能値を割り当てます
func suggestRequiredFields(meta map[string]models.FieldMeta) map[string]interface{} {
	fields := make(map[string]interface{})

	for id, field := range meta {
		if !field.Required || baseIssueFields[id] {
			continue
		}
		if len(field.AllowedValues) == 0 {
			utils.LogWarn("必須フィールド %s (%s) の既定値を決定できません", field.Name, id)
			continue
		}

		value := field.AllowedValues[0]
		if value.ID != "" {
			fields[id] = map[string]string{"id": value.ID}
		} else if value.Value != "" {
			fields[id] = map[string]string{"value": value.Value}
		} else {
			fields[id] = map[string]string{"name": value.Name}
		}
		utils.LogInfo("必須フィールド %s (%s) に既定値を設定します", field.Name, id)
	}

	return fields
}

// generateFeatureTitle は説明文からフィーチャータイトルを生成します
// 最大文字数を超える場合は単語境界で切り詰めて "..." を付けます
func generateFeatureTitle(description string) string {
	clean := strings.TrimSpace(description)
	if clean == "" {
		return "無題のフィーチャー"
	}

	runes := []rune(clean)
	if len(runes) <= maxFeatureTitleLength {
		return clean
	}

	limit := maxFeatureTitleLength - 3
	var words []string
	count := 0
	for _, word := range strings.Fields(clean) {
		next := count + len([]rune(word))
		if count > 0 {
			next++ // 区切りスペース
		}
		if next > limit {
			break
		}
		words = append(words, word)
		count = next
	}

	if len(words) > 0 {
		return strings.Join(words, " ") + "..."
	}

	// 単語単位で収まらない場合は文字数で切る
	return string(runes[:limit]) + "..."
}

// lessIssueKey はイシューキーを番号部分も考慮して比較します (PROJ-9 < PROJ-10)
func lessIssueKey(a, b string) bool {
	aPrefix, aNum, aOK := splitIssueKey(a)
	bPrefix, bNum, bOK := splitIssueKey(b)

	if aOK && bOK {
		if aPrefix != bPrefix {
			return aPrefix < bPrefix
		}
		return aNum < bNum
	}
	return a < b
}

// splitIssueKey はキーをプレフィックスと番号に分解します
func splitIssueKey(key string) (string, int, bool) {
	idx := strings.LastIndex(key, "-")
	if idx <= 0 {
		return "", 0, false
	}
	num, err := strconv.Atoi(key[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return key[:idx], num, true
}
