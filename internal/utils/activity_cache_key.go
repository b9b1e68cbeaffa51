package utils

import (
	"strconv"
	"strings"

	"github.com/geocoder89/civichub/internal/domain/activity"
)

const ActivitiesCachePrefix = "activities:"

func BuildActivityCacheKey(id string) string {
	return ActivitiesCachePrefix + "item:v1:" + id
}

func BuildActivitiesListCacheKey(f activity.ListFilter) string {
	return ActivitiesCachePrefix + "list:v1:limit=" + strconv.Itoa(f.Limit) +
		":offset=" + strconv.Itoa(f.Offset) +
		":type=" + norm(f.Type) +
		":congress=" + norm(f.Congress) +
		":term=" + norm(f.TermID)
}

func norm(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}
