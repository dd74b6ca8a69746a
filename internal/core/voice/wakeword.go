// Package voice 處理語音轉文字結果的喚醒詞偵測與清理
// 語音辨識常把 "Nori" 聽成 Lori、Norry 等近音詞，
// 比對時一併接受這些變體
package voice

import (
	"regexp"
	"strings"
)

// Confidence 喚醒詞偵測信心等級
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Mention 喚醒詞偵測結果
type Mention struct {
	Detected   bool       `json:"detected"`
	Matched    string     `json:"matched,omitempty"`
	AtStart    bool       `json:"at_start"`
	AtEnd      bool       `json:"at_end"`
	Confidence Confidence `json:"confidence"`
}

// 喚醒詞與常見誤聽變體
var wakeWordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bnori\b`),
	regexp.MustCompile(`(?i)\bnorie\b`),
	regexp.MustCompile(`(?i)\bnorry\b`),
	regexp.MustCompile(`(?i)\bnoree\b`),
	regexp.MustCompile(`(?i)\bnor[iy]\b`),
	regexp.MustCompile(`(?i)\blorie\b`),
	regexp.MustCompile(`(?i)\blori\b`),
	regexp.MustCompile(`(?i)\blor[iy]\b`),
}

// leadingWakePattern 清理句首的招呼語加喚醒詞
var leadingWakePattern = regexp.MustCompile(`(?i)^(hey\s+|salut\s+|bonjour\s+)?(nori|norie|norry|noree|lorie|lori)[,\s]*`)

// DetectMention 在轉錄文字中尋找喚醒詞
// 出現在句首為高信心，句中為中信心，句尾為低信心
func DetectMention(transcript string) Mention {
	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return Mention{Detected: false, Confidence: ConfidenceLow}
	}

	for _, pattern := range wakeWordPatterns {
		loc := pattern.FindStringIndex(trimmed)
		if loc == nil {
			continue
		}

		position := float64(loc[0]) / float64(len(trimmed))
		atStart := position < 0.2
		atEnd := position > 0.8

		confidence := ConfidenceMedium
		if atStart {
			confidence = ConfidenceHigh
		} else if atEnd {
			confidence = ConfidenceLow
		}

		return Mention{
			Detected:   true,
			Matched:    trimmed[loc[0]:loc[1]],
			AtStart:    atStart,
			AtEnd:      atEnd,
			Confidence: confidence,
		}
	}
	return Mention{Detected: false, Confidence: ConfidenceLow}
}

// CleanTranscript 移除句首的喚醒詞與招呼語
// "Hey Nori, what can I cook?" 變成 "what can I cook?"
func CleanTranscript(transcript string) string {
	cleaned := leadingWakePattern.ReplaceAllString(strings.TrimSpace(transcript), "")
	return strings.TrimSpace(cleaned)
}

// ShouldProcessTranscript 判斷轉錄文字是否該送進對話管線
// requireWake 為真時必須偵測到喚醒詞；否則提及喚醒詞
// 或屬於五個字以內的短指令都放行
func ShouldProcessTranscript(transcript string, requireWake bool) bool {
	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return false
	}

	mention := DetectMention(trimmed)
	if requireWake {
		return mention.Detected
	}
	return mention.Detected || len(strings.Fields(trimmed)) <= 5
}
