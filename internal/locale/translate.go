package locale

// Pick returns the text matching the request language, defaulting to Chinese.
func Pick(language, english, chinese string) string {
	if NormalizeLanguage(language) == LanguageEnglish {
		if english != "" {
			return english
		}
		return chinese
	}
	if chinese != "" {
		return chinese
	}
	return english
}

var viewableTypeLabels = map[string][2]string{
	"post":     {"Post", "文章"},
	"question": {"Question", "问题"},
	"answer":   {"Answer", "回答"},
	"draft":    {"Draft", "草稿"},
	"media":    {"Media", "媒体"},
}

// ViewableTypeLabel 返回内容类型的展示名称，未知类型原样返回。
func ViewableTypeLabel(language, viewableType string) string {
	labels, ok := viewableTypeLabels[viewableType]
	if !ok {
		return viewableType
	}
	return Pick(language, labels[0], labels[1])
}
