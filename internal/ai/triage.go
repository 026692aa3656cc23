package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/baronda/siskamling-backend/internal/logger"
	"github.com/baronda/siskamling-backend/internal/models"
)

var codeBlockPattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

const maxSummaryRunes = 280

const triageSystemPrompt = `Kamu adalah asisten siskamling (ronda malam) di lingkungan RT/RW.
Tugasmu menilai tingkat ancaman laporan warga.
Jawab HANYA dengan JSON tanpa teks lain:
{"threat_level": "low|medium|high|critical", "category": "theft|fire|violence|suspicious|nuisance|other", "summary": "ringkasan satu kalimat dalam bahasa Indonesia"}
critical: ancaman langsung terhadap nyawa (senjata, kebakaran aktif, korban).
high: kejahatan sedang berlangsung atau risiko cedera.
medium: kejadian mencurigakan yang perlu dicek petugas.
low: gangguan ringan atau informasi.`

// ClassifyReport оценивает уровень угрозы отчёта. Ошибка модели или
// непонятный ответ не прерывают поток: результат даёт FallbackTriage.
func (c *Client) ClassifyReport(ctx context.Context, title, description string) models.TriageResult {
	if !c.Enabled() {
		return FallbackTriage(title, description)
	}

	messages := []chatMessage{
		{Role: "system", Content: triageSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Judul: %s\nDeskripsi: %s", title, description)},
	}

	reply, err := c.chatCompletion(ctx, messages, 300, 0.2)
	if err != nil {
		logger.Entry(logrus.Fields{"error": err}).Warn("ai: модель недоступна, используем fallback")
		return FallbackTriage(title, description)
	}

	result, ok := parseTriage(reply)
	if !ok {
		logger.Entry(logrus.Fields{"reply_len": len(reply)}).Warn("ai: не удалось разобрать ответ модели, используем fallback")
		return FallbackTriage(title, description)
	}
	return result
}

// parseTriage проверяет поля ответа модели по допустимым значениям.
func parseTriage(reply string) (models.TriageResult, bool) {
	data, ok := parseJSONFromText(reply)
	if !ok {
		return models.TriageResult{}, false
	}

	level, _ := data["threat_level"].(string)
	level = strings.ToLower(strings.TrimSpace(level))
	if _, valid := models.ValidThreatLevels[level]; !valid || level == models.ThreatLevelUnknown {
		return models.TriageResult{}, false
	}

	category, _ := data["category"].(string)
	category = strings.ToLower(strings.TrimSpace(category))
	if _, valid := models.ValidReportCategories[category]; !valid {
		category = models.ReportCategoryOther
	}

	summary, _ := data["summary"].(string)
	return models.TriageResult{
		ThreatLevel: level,
		Category:    category,
		Summary:     truncate(strings.TrimSpace(summary), maxSummaryRunes),
	}, true
}

type keywordRule struct {
	level    string
	category string
	words    []string
}

// Порядок важен: первое совпадение побеждает, поэтому правила идут от тяжёлых к лёгким.
var keywordRules = []keywordRule{
	{models.ThreatLevelCritical, models.ReportCategoryViolence, []string{"senjata", "pistol", "pisau", "golok", "celurit", "bacok", "tusuk", "tembak", "sandera"}},
	{models.ThreatLevelCritical, models.ReportCategoryFire, []string{"kebakaran", "terbakar", "api", "asap tebal", "ledakan"}},
	{models.ThreatLevelHigh, models.ReportCategoryViolence, []string{"berkelahi", "tawuran", "pukul", "keroyok", "luka", "darah"}},
	{models.ThreatLevelHigh, models.ReportCategoryTheft, []string{"maling", "pencuri", "rampok", "begal", "jambret", "bobol"}},
	{models.ThreatLevelMedium, models.ReportCategorySuspicious, []string{"mencurigakan", "orang asing", "mondar-mandir", "mengintai", "tidak dikenal"}},
	{models.ThreatLevelLow, models.ReportCategoryNuisance, []string{"berisik", "bising", "mabuk", "parkir", "sampah", "musik"}},
}

// FallbackTriage классифицирует текст по ключевым словам без модели.
func FallbackTriage(title, description string) models.TriageResult {
	text := " " + strings.ToLower(title+" "+description) + " "
	for _, rule := range keywordRules {
		for _, word := range rule.words {
			if containsWord(text, word) {
				return models.TriageResult{
					ThreatLevel: rule.level,
					Category:    rule.category,
					Summary:     fallbackSummary(title, description),
				}
			}
		}
	}
	return models.TriageResult{
		ThreatLevel: models.ThreatLevelLow,
		Category:    models.ReportCategoryOther,
		Summary:     fallbackSummary(title, description),
	}
}

// containsWord ищет слово целиком, чтобы "api" не срабатывало на "rapi".
func containsWord(text, word string) bool {
	for offset := 0; ; {
		idx := strings.Index(text[offset:], word)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(word)
		if !isLetter(text, start-1) && !isLetter(text, end) {
			return true
		}
		offset = start + 1
	}
}

func isLetter(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return false
	}
	b := text[i]
	return b >= 'a' && b <= 'z'
}

func fallbackSummary(title, description string) string {
	desc := strings.TrimSpace(description)
	if desc == "" {
		return truncate(strings.TrimSpace(title), maxSummaryRunes)
	}
	sentence := desc
	if idx := strings.IndexAny(desc, ".!?"); idx > 0 {
		sentence = desc[:idx+1]
	}
	return truncate(fmt.Sprintf("%s: %s", strings.TrimSpace(title), sentence), maxSummaryRunes)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
