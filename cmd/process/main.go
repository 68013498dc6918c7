package main

import (
	"flag"
	"fmt"
	"os"

	"storiestojira/api"
	"storiestojira/config"
	"storiestojira/services"
	"storiestojira/utils"
)

func main() {
	// コマンドラインフラグの定義
	file := flag.String("file", "", "処理するCSV/Excelファイル（指定しない場合は入力ディレクトリを検索）")
	project := flag.String("project", "", "JIRAプロジェクトキー（環境変数を上書き）")
	dryRun := flag.Bool("dry-run", false, "イシューを作成せずに動作確認する")
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

	// コマンドラインでの上書き
	if *project != "" {
		cfg.JiraProjectKey = *project
	}
	if *dryRun {
		cfg.DryRun = true
	}

	if err := cfg.ValidateRequired(); err != nil {
		formatter.PrintError("%v", err)
		formatter.PrintInfo(".envファイルまたは環境変数を設定してください。")
		os.Exit(1)
	}

	utils.SetLevel(*logLevel)
	if err := utils.InitFileLogging(cfg.LogsDirectory); err != nil {
		utils.LogWarn("ファイルログの初期化に失敗しました: %v", err)
	}

	utils.LogInfo("ユーザーストーリーインポートツール")
	utils.LogInfo("プロジェクト: %s", cfg.JiraProjectKey)
	if cfg.DryRun {
		utils.LogInfo("ドライランモードで実行します（イシューは作成されません）")
	}

	// JIRA認証チェック
	jiraClient := api.NewJiraClient(cfg)
	if err := jiraClient.CheckAuth(); err != nil {
		formatter.PrintError("JIRA認証エラー: %v", err)
		formatter.PrintError("認証情報を確認してください。")
		os.Exit(1)
	}
	if err := jiraClient.ValidateProject(cfg.JiraProjectKey); err != nil {
		formatter.PrintError("%v", err)
		os.Exit(1)
	}
	utils.LogInfo("JIRA認証成功")

	// ドライラン時は書き込み系の呼び出しをラッパーで遮断する
	var client services.JiraAPI = jiraClient
	if cfg.DryRun {
		client = services.NewDryRunClient(jiraClient, cfg.FeatureIssueType)
	}

	// 処理対象ファイルの決定
	var files []string
	if *file != "" {
		files = []string{*file}
	} else {
		files, err = services.NewFileProcessor(cfg).FindInputFiles()
		if err != nil {
			formatter.PrintError("入力ファイル検索エラー: %v", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			formatter.PrintError("入力ディレクトリ %s にCSV/Excelファイルがありません", cfg.InputDirectory)
			os.Exit(1)
		}
	}

	formatter.PrintInfo("処理を開始します: %d ファイル", len(files))

	// バッチ処理の実行
	pipeline := services.NewPipeline(cfg, client)
	reports, overall, err := pipeline.Run(files)
	if err != nil {
		formatter.PrintError("処理を中断しました: %v", err)
		os.Exit(1)
	}

	// 結果の表示
	for i, report := range reports {
		formatter.PrintFileHeader(i+1, len(reports), report.FileName)

		if report.Err != nil {
			formatter.PrintError("ファイル読み込みエラー: %v", report.Err)
			continue
		}

		for _, result := range report.Batch.Results {
			formatter.PrintRowResult(result)
		}
		formatter.PrintFileSummary(report)
	}

	formatter.PrintOverallSummary(len(reports), overall)
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
ユーザーストーリーインポートツール

使用方法:
  %s [オプション]

オプション:
  -file ファイル       処理するCSV/Excelファイル
  -project キー        JIRAプロジェクトキー（環境変数を上書き）
  -dry-run             イシューを作成せずに動作確認する
  -log-level レベル    ログレベル (DEBUG/INFO/WARN/ERROR)
  -help                このヘルプを表示する

環境変数:
  JIRA_URL                      JIRA URL (必須)
  JIRA_EMAIL                    JIRA APIアカウントのメールアドレス (必須)
  JIRA_API_TOKEN                JIRA APIトークン (必須)
  JIRA_PROJECT_KEY              JIRAプロジェクトキー (必須)
  STORY_ISSUE_TYPE              ストーリーのイシュータイプ (デフォルト: Story)
  SUBTASK_ISSUE_TYPE            サブタスクのイシュータイプ (デフォルト: Sub-task)
  FEATURE_ISSUE_TYPE            フィーチャーのイシュータイプ (デフォルト: Feature)
  ACCEPTANCE_CRITERIA_FIELD     受け入れ基準用カスタムフィールドID
  FEATURE_REQUIRED_FIELDS       フィーチャー作成時の追加フィールド (JSON)
  STORY_REQUIRED_FIELDS         ストーリー作成時の追加フィールド (JSON)
  INPUT_DIRECTORY               入力ディレクトリ (デフォルト: input)
  PROCESSED_DIRECTORY           処理済みディレクトリ (デフォルト: processed)
  ROLLBACK_ON_SUBTASK_FAILURE   全サブタスク失敗時にストーリーを削除する

説明:
  このツールはCSV/Excelのユーザーストーリーを読み込み、JIRAに
  ストーリー・サブタスク・親フィーチャーを作成します。

  親(parent)カラムに既存キー (例: PROJ-123) を指定するとそのイシューに
  リンクし、説明文を指定すると同名フィーチャーを検索・再利用するか
  新規作成します。

  1行以上成功したファイルは処理済みディレクトリへ移動されます。
`, os.Args[0])
}
