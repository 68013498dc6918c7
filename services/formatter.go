package services

import (
	"fmt"
	"io"
	"os"
	"strings"

	"storiestojira/models"
)

// OutputFormatter はコンソール向けの結果表示を担当します
type OutputFormatter struct {
	out io.Writer
}

// NewOutputFormatter は標準出力向けのフォーマッターを作成します
func NewOutputFormatter() *OutputFormatter {
	return &OutputFormatter{out: os.Stdout}
}

// NewOutputFormatterTo は出力先を指定してフォーマッターを作成します
func NewOutputFormatterTo(out io.Writer) *OutputFormatter {
	return &OutputFormatter{out: out}
}

// PrintError はエラーメッセージを表示します
func (f *OutputFormatter) PrintError(format string, v ...interface{}) {
	fmt.Fprintf(f.out, "[ERROR] "+format+"\n", v...)
}

// PrintInfo は情報メッセージを表示します
func (f *OutputFormatter) PrintInfo(format string, v ...interface{}) {
	fmt.Fprintf(f.out, format+"\n", v...)
}

// PrintFileHeader はファイル処理の見出しを表示します
func (f *OutputFormatter) PrintFileHeader(fileIndex, totalFiles int, fileName string) {
	fmt.Fprintf(f.out, "\n%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(f.out, "ファイル処理 [%d/%d]: %s\n", fileIndex, totalFiles, fileName)
	fmt.Fprintf(f.out, "%s\n\n", strings.Repeat("=", 70))
}

// PrintRowResult は1行の処理結果を表示します
func (f *OutputFormatter) PrintRowResult(result models.ProcessResult) {
	if !result.Success {
		fmt.Fprintf(f.out, "✗ 行 %d: %s\n", result.RowNumber, result.ErrorMessage)
		f.printSubtaskLines(result)
		fmt.Fprintln(f.out)
		return
	}

	fmt.Fprintf(f.out, "✓ ストーリー作成: %s\n", result.JiraKey)
	fmt.Fprintf(f.out, "  タイトル: %s\n", result.Title)

	if result.Feature != nil {
		switch result.Feature.Outcome {
		case models.FeatureCreated:
			fmt.Fprintf(f.out, "  フィーチャー作成: %s\n", result.Feature.Key)
		case models.FeatureReused:
			fmt.Fprintf(f.out, "  フィーチャー再利用: %s\n", result.Feature.Key)
		case models.FeatureLinked:
			fmt.Fprintf(f.out, "  既存親にリンク: %s\n", result.Feature.Key)
		}
	}

	f.printSubtaskLines(result)

	if result.Warning != "" {
		fmt.Fprintf(f.out, "  [WARNING] %s\n", result.Warning)
	}

	fmt.Fprintln(f.out)
}

// サブタスクごとの ✓/✗ を表示
func (f *OutputFormatter) printSubtaskLines(result models.ProcessResult) {
	for _, subtask := range result.Subtasks {
		if subtask.Succeeded() {
			fmt.Fprintf(f.out, "    ✓ %s (%s)\n", subtask.Title, subtask.Key)
		} else {
			fmt.Fprintf(f.out, "    ✗ %s: %s\n", subtask.Title, subtask.ErrorMessage)
		}
	}
}

// PrintFileSummary はファイル単位の集計を表示します
func (f *OutputFormatter) PrintFileSummary(report FileReport) {
	fmt.Fprintf(f.out, "%s\n", strings.Repeat("-", 70))
	fmt.Fprintf(f.out, "ファイル集計: %s\n", report.FileName)
	fmt.Fprintf(f.out, "%s\n", strings.Repeat("-", 70))

	batch := report.Batch
	fmt.Fprintf(f.out, "ストーリー: 成功 %d / 失敗 %d\n", batch.Successful, batch.Failed)
	fmt.Fprintf(f.out, "フィーチャー: 作成 %d / 再利用 %d\n", batch.FeaturesCreated, batch.FeaturesReused)
	fmt.Fprintf(f.out, "サブタスク: 成功 %d / 失敗 %d\n", batch.SubtasksCreated, batch.SubtasksFailed)

	if report.Archived {
		fmt.Fprintf(f.out, "アーカイブ先: %s\n", report.ArchivedTo)
	} else if !batch.ShouldArchive() {
		fmt.Fprintf(f.out, "成功した行がないためファイルは移動されません\n")
	}

	fmt.Fprintln(f.out)
}

// PrintOverallSummary は全ファイルの最終集計を表示します
func (f *OutputFormatter) PrintOverallSummary(totalFiles int, overall *models.BatchResult) {
	fmt.Fprintf(f.out, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(f.out, "最終集計\n")
	fmt.Fprintf(f.out, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(f.out, "処理ファイル数: %d\n", totalFiles)

	if overall == nil {
		fmt.Fprintf(f.out, "処理された行はありません\n")
		return
	}

	fmt.Fprintf(f.out, "ストーリー: 成功 %d / 失敗 %d\n", overall.Successful, overall.Failed)
	fmt.Fprintf(f.out, "フィーチャー: 作成 %d / 再利用 %d\n", overall.FeaturesCreated, overall.FeaturesReused)
	fmt.Fprintf(f.out, "サブタスク: 成功 %d / 失敗 %d\n", overall.SubtasksCreated, overall.SubtasksFailed)

	if overall.TotalProcessed > 0 {
		rate := float64(overall.Successful) / float64(overall.TotalProcessed) * 100
		fmt.Fprintf(f.out, "成功率: %.0f%%\n", rate)
	}
}

// PrintPreview はファイルの先頭数行をテーブル形式で表示します
func (f *OutputFormatter) PrintPreview(fileName string, records [][]string) {
	fmt.Fprintf(f.out, "プレビュー: %s\n", fileName)
	fmt.Fprintf(f.out, "%s\n", strings.Repeat("=", 70))

	for i, record := range records {
		marker := fmt.Sprintf("%3d", i)
		if i == 0 {
			marker = "ヘッダ"
		}
		fmt.Fprintf(f.out, "%s | %s\n", marker, strings.Join(record, " | "))
	}
	fmt.Fprintln(f.out)
}

// PrintValidationResults は行ごとの検証結果を表示します
func (f *OutputFormatter) PrintValidationResults(stories []models.UserStory) {
	fmt.Fprintf(f.out, "検証結果\n")
	fmt.Fprintf(f.out, "%s\n", strings.Repeat("=", 70))

	valid := 0
	for _, story := range stories {
		if err := ValidateStory(story); err != nil {
			fmt.Fprintf(f.out, "✗ 行 %d: %v\n", story.RowNumber, err)
		} else {
			fmt.Fprintf(f.out, "✓ 行 %d: %s\n", story.RowNumber, story.Title)
			valid++
		}
	}

	fmt.Fprintf(f.out, "\n有効な行: %d/%d\n", valid, len(stories))
}

// PrintFieldMetadata は診断用にフィールドメタデータを表示します
func (f *OutputFormatter) PrintFieldMetadata(issueType string, fields []models.FieldMeta) {
	fmt.Fprintf(f.out, "\nイシュータイプ '%s' の必須フィールド:\n", issueType)

	required := 0
	for _, field := range fields {
		if !field.Required {
			continue
		}
		required++
		fmt.Fprintf(f.out, "  - %s (%s)\n", field.Name, field.ID)

		for i, value := range field.AllowedValues {
			if i >= 5 {
				fmt.Fprintf(f.out, "      ... 他 %d 件\n", len(field.AllowedValues)-5)
				break
			}
			display := value.Value
			if display == "" {
				display = value.Name
			}
			fmt.Fprintf(f.out, "      [%d] %s (id: %s)\n", i+1, display, value.ID)
		}
	}

	if required == 0 {
		fmt.Fprintf(f.out, "  (追加の必須フィールドはありません)\n")
	}
}
