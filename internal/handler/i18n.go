package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/inkboard/internal/locale"
	"github.com/inkboard/internal/views"
)

func requestLanguage(c *gin.Context) string {
	return locale.Resolve(c.Query("lang"), c.GetHeader("Accept-Language"))
}

func viewableTypeLabels(language string) map[views.ViewableType]string {
	labels := make(map[views.ViewableType]string, len(views.ViewableTypes))
	for _, t := range views.ViewableTypes {
		labels[t] = locale.ViewableTypeLabel(language, string(t))
	}
	return labels
}
