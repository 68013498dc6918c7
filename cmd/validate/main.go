package main

import (
	"flag"
	"fmt"
	"os"

	"storiestojira/config"
	"storiestojira/services"
)

func main() {
	// コマンドラインフラグの定義
	file := flag.String("file", "", "検証するCSV/Excelファイル (必須)")
	rows := flag.Int("rows", 5, "プレビューに表示する行数")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	formatter := services.NewOutputFormatter()

	if *file == "" {
		formatter.PrintError("-file オプションは必須です")
		printHelp()
		os.Exit(1)
	}

	// 設定の読み込み (検証はローカルのみで接続設定は不要)
	cfg, err := config.LoadConfig()
	if err != nil {
		formatter.PrintError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	processor := services.NewFileProcessor(cfg)

	// プレビューの表示
	preview, err := processor.Preview(*file, *rows)
	if err != nil {
		formatter.PrintError("%v", err)
		os.Exit(1)
	}
	formatter.PrintPreview(*file, preview)

	// 行ごとの検証
	stories, err := processor.ReadStories(*file)
	if err != nil {
		formatter.PrintError("%v", err)
		os.Exit(1)
	}
	formatter.PrintValidationResults(stories)
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
ファイル検証ツール

使用方法:
  %s -file ファイル [オプション]

オプション:
  -file ファイル      検証するCSV/Excelファイル (必須)
  -rows 数            プレビューに表示する行数 (デフォルト: 5)
  -help               このヘルプを表示する

説明:
  このツールは入力ファイルの形式をローカルで検証します。
  JIRAへの接続やイシューの作成は行いません。

  必須カラム: title, description
  任意カラム: acceptance_criteria, subtasks, parent
`, os.Args[0])
}
