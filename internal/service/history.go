package service

import "strings"

// SearchHistoryLimit 保留的搜索记录条数
const SearchHistoryLimit = 5

// SuggestionLimit 搜索页展示的建议条数
const SuggestionLimit = 4

var defaultSuggestions = []string{
	"Action movies 2023",
	"Christopher Nolan",
	"Marvel movies",
	"Top rated dramas",
	"Sci-fi thrillers",
	"Comedy films",
	"Oscar winners",
	"Netflix originals",
}

// PushHistory 把 query 放到最前，去重并截断
func PushHistory(history []string, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return history
	}
	out := make([]string, 0, SearchHistoryLimit)
	out = append(out, query)
	for _, h := range history {
		if h == query {
			continue
		}
		if len(out) == SearchHistoryLimit {
			break
		}
		out = append(out, h)
	}
	return out
}

// Suggestions 不在搜索记录中的推荐搜索词
func Suggestions(history []string) []string {
	seen := make(map[string]struct{}, len(history))
	for _, h := range history {
		seen[h] = struct{}{}
	}
	out := make([]string, 0, SuggestionLimit)
	for _, s := range defaultSuggestions {
		if _, ok := seen[s]; ok {
			continue
		}
		out = append(out, s)
		if len(out) == SuggestionLimit {
			break
		}
	}
	return out
}
