package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"storiestojira/api"
	"storiestojira/config"
	"storiestojira/models"
	"storiestojira/services"
	"storiestojira/utils"
)

func main() {
	// コマンドラインフラグの定義
	project := flag.String("project", "", "JIRAプロジェクトキー（環境変数を上書き）")
	logLevel := flag.String("log-level", "INFO", "ログレベル (DEBUG/INFO/WARN/ERROR)")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	formatter := services.NewOutputFormatter()

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		formatter.PrintError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}
	if *project != "" {
		cfg.JiraProjectKey = *project
	}
	if err := cfg.ValidateRequired(); err != nil {
		formatter.PrintError("%v", err)
		os.Exit(1)
	}

	utils.SetLevel(*logLevel)

	// 接続とプロジェクトの確認
	jiraClient := api.NewJiraClient(cfg)
	if err := jiraClient.CheckAuth(); err != nil {
		formatter.PrintError("JIRA認証エラー: %v", err)
		os.Exit(1)
	}
	if err := jiraClient.ValidateProject(cfg.JiraProjectKey); err != nil {
		formatter.PrintError("%v", err)
		os.Exit(1)
	}

	formatter.PrintInfo("プロジェクト %s の診断", cfg.JiraProjectKey)

	// 利用可能なイシュータイプの表示
	types, err := jiraClient.GetIssueTypes()
	if err != nil {
		formatter.PrintError("イシュータイプ取得エラー: %v", err)
		os.Exit(1)
	}

	formatter.PrintInfo("\n利用可能なイシュータイプ:")
	for _, t := range types {
		kind := "標準"
		if t.Subtask {
			kind = "サブタスク"
		}
		formatter.PrintInfo("  - %s (%s)", t.Name, kind)
	}

	// フィーチャーとストーリーの必須フィールドの表示
	for _, issueType := range []string{cfg.FeatureIssueType, cfg.StoryIssueType} {
		meta, err := jiraClient.GetFieldMetadata(issueType)
		if err != nil {
			formatter.PrintError("イシュータイプ '%s' のメタデータ取得エラー: %v", issueType, err)
			continue
		}
		formatter.PrintFieldMetadata(issueType, sortedFields(meta))
	}
}

// 表示を決定的にするためフィールドIDでソート
func sortedFields(meta map[string]models.FieldMeta) []models.FieldMeta {
	fields := make([]models.FieldMeta, 0, len(meta))
	for _, f := range meta {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		return fields[i].ID < fields[j].ID
	})
	return fields
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
プロジェクト診断ツール

使用方法:
  %s [オプション]

オプション:
  -project キー       JIRAプロジェクトキー（環境変数を上書き）
  -log-level レベル   ログレベル (DEBUG/INFO/WARN/ERROR)
  -help               このヘルプを表示する

環境変数:
  JIRA_URL            JIRA URL (必須)
  JIRA_EMAIL          JIRA APIアカウントのメールアドレス (必須)
  JIRA_API_TOKEN      JIRA APIトークン (必須)
  JIRA_PROJECT_KEY    JIRAプロジェクトキー (必須)

説明:
  このツールはプロジェクトのイシュータイプと、フィーチャー・ストーリー
  作成時に必要な必須フィールドを表示します。行の処理は行いません。

  表示された必須フィールドは FEATURE_REQUIRED_FIELDS /
  STORY_REQUIRED_FIELDS にJSON形式で設定できます。
`, os.Args[0])
}
