package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"storiestojira/config"
	"storiestojira/models"
	"storiestojira/utils"
)

// 必須カラム (acceptance_criteria / subtasks / parent は任意)
var requiredColumns = []string{"title", "description"}

// FileProcessor は入力ファイルの読み込みとアーカイブ移動を担当します
type FileProcessor struct {
	config *config.Config
}

// NewFileProcessor は新しいファイルプロセッサーを作成します
func NewFileProcessor(cfg *config.Config) *FileProcessor {
	return &FileProcessor{
		config: cfg,
	}
}

// FindInputFiles は入力ディレクトリからCSV/Excelファイルを検索します
// ディレクトリが存在しない場合は作成して空リストを返します
func (f *FileProcessor) FindInputFiles() ([]string, error) {
	inputDir := f.config.InputDirectory

	if _, err := os.Stat(inputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(inputDir, 0o755); err != nil {
			return nil, fmt.Errorf("入力ディレクトリ作成エラー: %w", err)
		}
		utils.LogInfo("入力ディレクトリを作成しました: %s", inputDir)
		return nil, nil
	}

	var files []string
	for _, pattern := range []string{"*.csv", "*.xlsx"} {
		matches, err := filepath.Glob(filepath.Join(inputDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("ファイル検索エラー: %w", err)
		}
		files = append(files, matches...)
	}

	sort.Strings(files)
	return files, nil
}

// ReadStories はファイルを読み込みユーザーストーリーのリストを返します
func (f *FileProcessor) ReadStories(path string) ([]models.UserStory, error) {
	records, err := f.readRecords(path)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("データ行がありません: %s", path)
	}

	headers := normalizeHeaders(records[0])
	columns, err := mapColumns(headers)
	if err != nil {
		return nil, err
	}

	stories := make([]models.UserStory, 0, len(records)-1)
	for i, record := range records[1:] {
		rowNumber := i + 2 // ヘッダーの次の行が2行目

		if isEmptyRow(record) {
			continue
		}
		if len(record) < len(headers) {
			// Excelの末尾空セルなどで短い行はパディングする
			padded := make([]string, len(headers))
			copy(padded, record)
			record = padded
		} else if len(record) > len(headers) {
			utils.LogWarn("行 %d: フィールド数が不一致（ヘッダー: %d, 行: %d）", rowNumber, len(headers), len(record))
			record = record[:len(headers)]
		}

		get := func(name string) string {
			idx, ok := columns[name]
			if !ok {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		stories = append(stories, models.UserStory{
			RowNumber:          rowNumber,
			Title:              get("title"),
			Description:        get("description"),
			AcceptanceCriteria: get("acceptance_criteria"),
			Subtasks:           models.SplitListField(get("subtasks")),
			Parent:             get("parent"),
		})
	}

	utils.LogInfo("ファイルを読み込みました: %s (%d 行)", filepath.Base(path), len(stories))
	return stories, nil
}

// Preview はヘッダーと先頭の数行をそのまま返します
func (f *FileProcessor) Preview(path string, rows int) ([][]string, error) {
	records, err := f.readRecords(path)
	if err != nil {
		return nil, err
	}

	if len(records) > rows+1 {
		records = records[:rows+1]
	}
	return records, nil
}

// MoveToProcessed は処理済みディレクトリへファイルを移動します
// 同名ファイルが存在する場合はタイムスタンプを付与します
func (f *FileProcessor) MoveToProcessed(path string) (string, error) {
	processedDir := f.config.ProcessedDirectory
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return "", fmt.Errorf("処理済みディレクトリ作成エラー: %w", err)
	}

	dest := filepath.Join(processedDir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		timestamp := time.Now().Format("20060102_150405")
		ext := filepath.Ext(path)
		stem := strings.TrimSuffix(filepath.Base(path), ext)
		dest = filepath.Join(processedDir, fmt.Sprintf("%s_%s%s", stem, timestamp, ext))
	}

	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("ファイル移動エラー: %w", err)
	}

	utils.LogInfo("ファイルを移動しました: %s", dest)
	return dest, nil
}

// readRecords は拡張子に応じてCSVまたはExcelを読み込みます
func (f *FileProcessor) readRecords(path string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("ファイルが見つかりません: %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readExcel(path)
	default:
		return nil, fmt.Errorf("サポートされていない拡張子です (.csv / .xlsx を使用してください): %s", path)
	}
}

// readCSV はCSVファイルを読み込みます
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("CSVオープンエラー: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV読み込みエラー: %w", err)
	}

	return records, nil
}

// readExcel はExcelファイルの最初のシートを読み込みます
func readExcel(path string) ([][]string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("Excelオープンエラー: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excelにシートがありません: %s", path)
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("Excel読み込みエラー: %w", err)
	}

	return rows, nil
}

// normalizeHeaders はヘッダー名を小文字・トリム済みに揃えます
func normalizeHeaders(headers []string) []string {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	}
	return normalized
}

// mapColumns はカラム名から列番号への対応を作り、必須カラムを確認します
func mapColumns(headers []string) (map[string]int, error) {
	columns := make(map[string]int)
	for i, h := range headers {
		if _, exists := columns[h]; !exists {
			columns[h] = i
		}
	}

	var missing []string
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("必須カラムがありません: %s", strings.Join(missing, ", "))
	}

	return columns, nil
}

// isEmptyRow は全セルが空の行かどうかを判定します
func isEmptyRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
