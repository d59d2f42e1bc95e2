package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"searoute/pkg/domain"
	"searoute/pkg/geo"
)

// Стандартные ошибки
var (
	ErrPortNotFound  = errors.New("port not found")
	ErrQueryTooShort = errors.New("search query too short")
)

// Ограничения поиска
const (
	MinQueryLength   = 2
	MaxSearchResults = 100
	// Порог редакционного расстояния для нечёткого совпадения
	fuzzyDistanceMax = 2
)

// Relevance scores по типу совпадения
const (
	scoreExactCode     = 1.0
	scoreNamePrefix    = 0.85
	scoreNameSubstring = 0.7
	scoreFuzzy         = 0.5
)

// PortRepository интерфейс каталога портов
type PortRepository interface {
	// GetByCode возвращает порт по коду UN/LOCODE.
	// Возвращает ErrPortNotFound если порт не найден.
	GetByCode(ctx context.Context, code string) (*domain.Port, error)

	// Search ищет порты по коду или имени с ранжированием
	Search(ctx context.Context, query string, limit int) ([]domain.PortSearchResult, error)

	// Nearby возвращает порты в радиусе от точки
	Nearby(ctx context.Context, center geo.Point, radiusNM float64, limit int) ([]domain.PortSearchResult, error)

	// All возвращает все порты каталога
	All(ctx context.Context) ([]*domain.Port, error)

	// Count возвращает число портов
	Count(ctx context.Context) (int, error)

	// Version возвращает отпечаток содержимого каталога. Меняется при
	// любом изменении данных и служит сигналом перестроения графа
	Version(ctx context.Context) (string, error)

	// HealthCheck проверяет доступность хранилища
	HealthCheck(ctx context.Context) error
}

// normalizeQuery приводит запрос к канонической форме
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// rankPort сопоставляет порт с запросом и возвращает результат поиска.
// Порядок проверок: точный код, префикс имени, подстрока имени, fuzzy.
func rankPort(p *domain.Port, query string) (domain.PortSearchResult, bool) {
	name := strings.ToLower(p.Name)

	switch {
	case strings.ToLower(p.Code) == query:
		return domain.PortSearchResult{Port: p, RelevanceScore: scoreExactCode, MatchType: domain.MatchExactCode}, true
	case strings.HasPrefix(name, query):
		return domain.PortSearchResult{Port: p, RelevanceScore: scoreNamePrefix, MatchType: domain.MatchNamePrefix}, true
	case strings.Contains(name, query):
		return domain.PortSearchResult{Port: p, RelevanceScore: scoreNameSubstring, MatchType: domain.MatchNameSubstring}, true
	}

	if d := levenshtein(name, query); d <= fuzzyDistanceMax {
		// Чем меньше расстояние, тем выше релевантность
		return domain.PortSearchResult{
			Port:           p,
			RelevanceScore: scoreFuzzy - float64(d)*0.1,
			MatchType:      domain.MatchFuzzy,
		}, true
	}

	return domain.PortSearchResult{}, false
}

// sortResults упорядочивает результаты: сначала по релевантности,
// при равенстве по числу причалов (больше лучше), затем по имени.
func sortResults(results []domain.PortSearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		if results[i].Port.BerthCount != results[j].Port.BerthCount {
			return results[i].Port.BerthCount > results[j].Port.BerthCount
		}
		return results[i].Port.Name < results[j].Port.Name
	})
}

// sortByDistance упорядочивает результаты поиска по близости
func sortByDistance(results []domain.PortSearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceNM != results[j].DistanceNM {
			return results[i].DistanceNM < results[j].DistanceNM
		}
		return results[i].Port.Code < results[j].Port.Code
	})
}

// clampLimit нормализует лимит выдачи
func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > MaxSearchResults {
		return MaxSearchResults
	}
	return limit
}

// levenshtein редакционное расстояние между строками
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// ValidCode проверяет формат кода UN/LOCODE
func ValidCode(code string) bool {
	return domain.CodePattern.MatchString(code)
}
