package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// アクセント記号 (結合文字) を取り除く変換
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeDescription は重複判定用に説明文を正規化します
// 小文字化・アクセント除去・記号除去・空白の圧縮を行い、
// 比較専用のキーを返します (ユーザーには表示しません)
func NormalizeDescription(text string) string {
	stripped, _, err := transform.String(stripDiacritics, text)
	if err != nil {
		// 変換に失敗した場合は元の文字列で続行
		stripped = text
	}

	lowered := strings.ToLower(stripped)

	// 文字・数字・ハイフン以外の記号を取り除き、空白を単一スペースに圧縮する
	var builder strings.Builder
	builder.Grow(len(lowered))
	pendingSpace := false

	for _, r := range lowered {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			if pendingSpace && builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			pendingSpace = false
			builder.WriteRune(r)
		default:
			// 記号はノイズとして除去
		}
	}

	return builder.String()
}
